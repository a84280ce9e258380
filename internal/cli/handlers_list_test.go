package cli

import (
	"bytes"
	"strings"
	"testing"

	"metadataexporter/internal/handlers"
)

// mockHandler implements handlers.Handler for testing purposes
type mockHandler struct {
	handlers.Nop
	id          string
	title       string
	description string
}

func (m *mockHandler) ID() string          { return m.id }
func (m *mockHandler) Title() string       { return m.title }
func (m *mockHandler) Description() string { return m.description }

// mockConfigurableHandler implements handlers.ConfigurableHandler for testing purposes
type mockConfigurableHandler struct {
	mockHandler
	options []handlers.Option
}

func (m *mockConfigurableHandler) Options() []handlers.Option {
	return m.options
}

func (m *mockConfigurableHandler) Configure(opts map[string]string) error {
	return nil
}

func registerMock(h handlers.Handler) {
	defer func() {
		// already registered by an earlier test
		_ = recover()
	}()
	handlers.Register(h.ID(), func(handlers.Env) handlers.Handler { return h })
}

func TestPrintHandler(t *testing.T) {
	tests := []struct {
		name           string
		handler        handlers.Handler
		expectedOutput []string
		notExpected    []string
	}{
		{
			name: "Regular Handler",
			handler: &mockHandler{
				id:          "simple-handler",
				title:       "Simple Handler",
				description: "A simple handler description",
			},
			expectedOutput: []string{
				"HANDLER: simple-handler",
				"Simple Handler",
				"A simple handler description",
			},
			notExpected: []string{
				"Options:",
			},
		},
		{
			name: "Configurable Handler",
			handler: &mockConfigurableHandler{
				mockHandler: mockHandler{
					id:          "config-handler",
					title:       "Config Handler",
					description: "A configurable handler description",
				},
				options: []handlers.Option{
					{
						Name:        "opt1",
						Description: "Option 1 description",
						Default:     "default1",
					},
					{
						Name:        "opt2",
						Description: "Option 2 description",
						Default:     "",
					},
				},
			},
			expectedOutput: []string{
				"HANDLER: config-handler",
				"Config Handler",
				"A configurable handler description",
				"Options:",
				"opt1",
				"Description: Option 1 description",
				"Default:     default1",
				"opt2",
				"Description: Option 2 description",
				"Default:     \"\"",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			printHandler(buf, tt.handler)
			output := buf.String()

			for _, exp := range tt.expectedOutput {
				if !strings.Contains(output, exp) {
					t.Errorf("Expected output to contain %q, but it didn't.\nOutput:\n%s", exp, output)
				}
			}

			for _, notExp := range tt.notExpected {
				if strings.Contains(output, notExp) {
					t.Errorf("Expected output NOT to contain %q, but it did.\nOutput:\n%s", notExp, output)
				}
			}
		})
	}
}

func TestHandlersListCmd(t *testing.T) {
	registerMock(&mockHandler{
		id:          "test-handler-list",
		title:       "Test Handler List",
		description: "This is a test handler for the list command.",
	})

	tests := []struct {
		name           string
		quiet          bool
		expectedOutput []string
		notExpected    []string
	}{
		{
			name:  "Default Output",
			quiet: false,
			expectedOutput: []string{
				"----------------------------------------",
				"HANDLER: test-handler-list",
				"Test Handler List",
				"This is a test handler for the list command.",
				// every registered handler supports the skip options
				"skip.paths",
			},
		},
		{
			name:  "Quiet Output",
			quiet: true,
			expectedOutput: []string{
				"test-handler-list",
			},
			notExpected: []string{
				"Test Handler List",
				"----------------------------------------",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlersListQuiet = tt.quiet
			defer func() { handlersListQuiet = false }()

			buf := new(bytes.Buffer)
			handlersListCmd.SetOut(buf)

			err := handlersListCmd.RunE(handlersListCmd, []string{})
			if err != nil {
				t.Fatalf("RunE() error = %v", err)
			}

			output := buf.String()
			for _, exp := range tt.expectedOutput {
				if !strings.Contains(output, exp) {
					t.Errorf("Expected output to contain %q, but it didn't.\nOutput:\n%s", exp, output)
				}
			}
			for _, notExp := range tt.notExpected {
				if strings.Contains(output, notExp) {
					t.Errorf("Expected output NOT to contain %q, but it did.\nOutput:\n%s", notExp, output)
				}
			}
		})
	}
}

func TestHandlersShowCmd(t *testing.T) {
	registerMock(&mockHandler{
		id:          "test-handler-show",
		title:       "Test Handler Show",
		description: "This is a test handler for the show command.",
	})

	tests := []struct {
		name           string
		args           []string
		expectedOutput []string
		expectError    bool
	}{
		{
			name: "Show Existing Handler",
			args: []string{"test-handler-show"},
			expectedOutput: []string{
				"----------------------------------------",
				"HANDLER: test-handler-show",
				"Test Handler Show",
				"This is a test handler for the show command.",
			},
		},
		{
			name:        "Show Non-Existent Handler",
			args:        []string{"non-existent-handler"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			handlersShowCmd.SetOut(buf)

			err := handlersShowCmd.RunE(handlersShowCmd, tt.args)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			output := buf.String()
			for _, exp := range tt.expectedOutput {
				if !strings.Contains(output, exp) {
					t.Errorf("Expected output to contain %q, but it didn't.\nOutput:\n%s", exp, output)
				}
			}
		})
	}
}
