package builtin

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"metadataexporter/internal/checksum"
	"metadataexporter/internal/handlers"
	"metadataexporter/internal/results"
	"metadataexporter/internal/tree"
)

const ChecksumID = "checksum"

const (
	missingWarn   = "warn"
	missingFail   = "fail"
	missingIgnore = "ignore"
)

// ChecksumHandler verifies node and attribute files against their checksum
// sidecars.
type ChecksumHandler struct {
	handlers.Nop
	verifier checksum.Verifier
	missing  string
	verify   bool
}

func NewChecksumHandler(env handlers.Env) handlers.Handler {
	v := env.Verifier
	if v == nil {
		v = checksum.NewMD5Verifier(env.Digests)
	}
	return &ChecksumHandler{verifier: v, missing: missingWarn, verify: true}
}

func (h *ChecksumHandler) ID() string {
	return ChecksumID
}

func (h *ChecksumHandler) Title() string {
	return "Checksum sidecars present and matching"
}

func (h *ChecksumHandler) Description() string {
	return "Verifies every page image, standalone file and metadata attribute against its checksum sidecar. " +
		"A missing sidecar is a warning by default; a mismatching digest is a failure."
}

func (h *ChecksumHandler) Options() []handlers.Option {
	return []handlers.Option{
		{
			Name:        "missing",
			Description: "How to report a file without a checksum sidecar: warn, fail or ignore.",
			Default:     missingWarn,
		},
		{
			Name:        "verify",
			Description: "If false, only the presence of sidecars is checked.",
			Default:     "true",
		},
	}
}

func (h *ChecksumHandler) Configure(opts map[string]string) error {
	if v, ok := opts["missing"]; ok {
		switch m := strings.ToLower(strings.TrimSpace(v)); m {
		case "":
			h.missing = missingWarn
		case missingWarn, missingFail, missingIgnore:
			h.missing = m
		default:
			return fmt.Errorf("invalid value for missing: %s (must be one of: warn, fail, ignore)", v)
		}
	}
	if v, ok := opts["verify"]; ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid value for verify: %s", v)
		}
		h.verify = b
	}
	return nil
}

func (h *ChecksumHandler) HandleNodeBegin(ctx context.Context, node tree.Node) error {
	file := node.PrimaryFile()
	if file == "" {
		return nil
	}
	return h.check(ctx, file, node.ChecksumReference)
}

func (h *ChecksumHandler) HandleAttribute(ctx context.Context, node tree.Node, attr tree.Attribute) error {
	return h.check(ctx, attr.Path, attr.ChecksumReference)
}

func (h *ChecksumHandler) check(ctx context.Context, file, sidecar string) error {
	name := filepath.Base(file)
	if sidecar == "" {
		switch h.missing {
		case missingIgnore:
			return nil
		case missingFail:
			return fmt.Errorf("missing checksum file for %s", name)
		default:
			return results.Warnf("missing checksum file for %s", name)
		}
	}
	if !h.verify {
		return nil
	}
	if err := h.verifier.Verify(ctx, file, sidecar); err != nil {
		return fmt.Errorf("verify %s: %w", name, err)
	}
	return nil
}

func init() {
	handlers.Register(ChecksumID, NewChecksumHandler)
}
