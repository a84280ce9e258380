package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"metadataexporter/internal/filelock"
	"metadataexporter/internal/handlers"
	"metadataexporter/internal/tree"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const MetadataExportID = "metadata-export"

// MetadataExporter mirrors the metadata files of a batch into
// <location>/<B<batchId>-RT<n>>. In transform mode it writes one YAML
// manifest per node instead of copying the raw files.
//
// The exporter is forgiving: a missing content file is logged, not reported.
type MetadataExporter struct {
	env            handlers.Env
	log            *logrus.Entry
	transform      bool
	includeContent bool

	// dest is set once start succeeded; nothing is written before that.
	dest     string
	lock     *filelock.FileLock
	disabled bool
	pending  map[string]*manifest

	files int
	bytes int64
}

type manifest struct {
	Batch                  string         `yaml:"batch"`
	RoundTrip              int            `yaml:"round_trip"`
	Node                   string         `yaml:"node"`
	Type                   string         `yaml:"type"`
	ContentFile            string         `yaml:"content_file,omitempty"`
	ContentDataFilePresent bool           `yaml:"content_data_file_present"`
	ChecksumFile           string         `yaml:"checksum_file,omitempty"`
	Files                  []manifestFile `yaml:"files,omitempty"`
}

type manifestFile struct {
	Name         string `yaml:"name"`
	Size         int64  `yaml:"size"`
	HumanSize    string `yaml:"human_size"`
	MD5          string `yaml:"md5,omitempty"`
	ChecksumFile string `yaml:"checksum_file,omitempty"`
}

func NewMetadataExporter(env handlers.Env) handlers.Handler {
	return &MetadataExporter{
		env:       env,
		log:       env.Log().WithField("handler", MetadataExportID),
		transform: env.TransformMode,
		pending:   make(map[string]*manifest),
	}
}

func (h *MetadataExporter) ID() string {
	return MetadataExportID
}

func (h *MetadataExporter) Title() string {
	return "Export batch metadata"
}

func (h *MetadataExporter) Description() string {
	return "Copies every metadata file of the batch into the output location, mirroring the batch layout. " +
		"In transform mode a YAML manifest with sizes and digests is written per node instead."
}

func (h *MetadataExporter) Options() []handlers.Option {
	return []handlers.Option{
		{
			Name:        "transform",
			Description: "If true, write per-node YAML manifests instead of copying files.",
			Default:     strconv.FormatBool(h.env.TransformMode),
		},
		{
			Name:        "include-content",
			Description: "If true, content files (page images) are exported as well.",
			Default:     "false",
		},
	}
}

func (h *MetadataExporter) Configure(opts map[string]string) error {
	if v, ok := opts["transform"]; ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid value for transform: %s", v)
		}
		h.transform = b
	}
	if v, ok := opts["include-content"]; ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid value for include-content: %s", v)
		}
		h.includeContent = b
	}
	return nil
}

var errNoOutputLocation = errors.New("no output location configured")

// Prepare fails when the export has nowhere to go.
func (h *MetadataExporter) Prepare() error {
	if strings.TrimSpace(h.env.OutputLocation) == "" {
		return errNoOutputLocation
	}
	return nil
}

func (h *MetadataExporter) active() bool {
	return !h.disabled && h.dest != ""
}

func (h *MetadataExporter) HandleNodeBegin(ctx context.Context, node tree.Node) error {
	if node.Type == tree.NodeRoot {
		return h.start()
	}
	if !h.active() {
		return nil
	}
	if !node.ContentDataFilePresent && node.Virtual {
		h.log.WithField("node", node.RelPath).Debug("no content file in group")
	}

	if h.transform {
		m := h.newManifest(node)
		if node.Type == tree.NodeFile {
			f, err := h.describe(ctx, node.Path, node.ChecksumReference)
			if err != nil {
				return err
			}
			m.Files = append(m.Files, f)
		}
		h.pending[node.Path] = m
		return nil
	}

	if node.Type == tree.NodeFile && (!node.ContentDataFilePresent || h.includeContent) {
		return h.copy(node.Path)
	}
	if node.ContentFile != "" && node.Type != tree.NodeFile && h.includeContent {
		return h.copy(node.ContentFile)
	}
	return nil
}

func (h *MetadataExporter) HandleAttribute(ctx context.Context, node tree.Node, attr tree.Attribute) error {
	if !h.active() {
		return nil
	}
	if !h.transform {
		return h.copy(attr.Path)
	}
	m, ok := h.pending[node.Path]
	if !ok {
		return fmt.Errorf("attribute %s arrived outside of its node", attr.Name)
	}
	f, err := h.describe(ctx, attr.Path, attr.ChecksumReference)
	if err != nil {
		return err
	}
	m.Files = append(m.Files, f)
	return nil
}

func (h *MetadataExporter) HandleNodeEnd(ctx context.Context, node tree.Node) error {
	if node.Type == tree.NodeRoot {
		return h.finish()
	}
	if !h.active() || !h.transform {
		return nil
	}
	m, ok := h.pending[node.Path]
	if !ok {
		return nil
	}
	delete(h.pending, node.Path)
	if len(m.Files) == 0 && m.ContentFile == "" {
		return nil
	}

	out, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest for %s: %w", node.RelPath, err)
	}
	target := filepath.Join(h.dest, filepath.FromSlash(node.RelPath)+".yaml")
	n, err := filelock.AtomicWrite(target, out)
	if err != nil {
		return err
	}
	h.files++
	h.bytes += n
	return nil
}

func (h *MetadataExporter) start() error {
	if err := h.Prepare(); err != nil {
		h.disabled = true
		return err
	}
	dest := filepath.Join(h.env.OutputLocation, h.env.Batch.FullID())
	h.lock = filelock.NewFileLock(dest + ".lock")
	if err := h.lock.TryLock(); err != nil {
		h.disabled = true
		h.lock = nil
		return fmt.Errorf("export of %s already in progress: %w", h.env.Batch.FullID(), err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		h.disabled = true
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	h.dest = dest
	h.log.WithField("destination", h.dest).Debug("export started")
	return nil
}

func (h *MetadataExporter) finish() error {
	if h.lock == nil {
		return nil
	}
	err := h.lock.Unlock()
	h.lock = nil
	h.log.WithFields(logrus.Fields{
		"files": h.files,
		"size":  units.HumanSize(float64(h.bytes)),
	}).Info("export finished")
	return err
}

// Close releases the output lock when the walk ended before the root node
// was closed, e.g. after cancellation.
func (h *MetadataExporter) Close() error {
	if h.lock == nil {
		return nil
	}
	err := h.lock.Unlock()
	h.lock = nil
	return err
}

func (h *MetadataExporter) copy(src string) error {
	rel, err := filepath.Rel(h.env.Root, src)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%s is outside the batch root", src)
	}
	n, err := filelock.AtomicCopy(filepath.Join(h.dest, rel), src)
	if err != nil {
		return err
	}
	h.files++
	h.bytes += n
	return nil
}

func (h *MetadataExporter) newManifest(node tree.Node) *manifest {
	m := &manifest{
		Batch:                  h.env.Batch.FullID(),
		RoundTrip:              h.env.Batch.RoundTripNumber,
		Node:                   node.RelPath,
		Type:                   node.Type.String(),
		ContentDataFilePresent: node.ContentDataFilePresent,
	}
	if node.ContentFile != "" {
		m.ContentFile = filepath.Base(node.ContentFile)
	}
	if node.ChecksumReference != "" {
		m.ChecksumFile = filepath.Base(node.ChecksumReference)
	}
	return m
}

func (h *MetadataExporter) describe(ctx context.Context, path, sidecar string) (manifestFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return manifestFile{}, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	f := manifestFile{
		Name:      filepath.Base(path),
		Size:      fi.Size(),
		HumanSize: units.HumanSize(float64(fi.Size())),
	}
	if sidecar != "" {
		f.ChecksumFile = filepath.Base(sidecar)
	}
	if h.env.Digests != nil {
		d, err := h.env.Digests.Digest(ctx, path)
		if err != nil {
			return manifestFile{}, err
		}
		f.MD5 = d
	}
	return f, nil
}

func init() {
	handlers.Register(MetadataExportID, NewMetadataExporter)
}
