package codetable

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/em-billing-mcp-server/internal/domain"
)

// FileSource reads codes from a YAML, JSON or TOML file under the key "codes".
// The file is read again on every load.
type FileSource struct {
	path string
}

// NewFileSource creates a file source for path.
func NewFileSource(path string) (*FileSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, domain.NewValidationError("code_table.path", "code table file path is required", path)
	}
	return &FileSource{path: path}, nil
}

// Name implements Source.
func (s *FileSource) Name() string { return SourceFile + ":" + s.path }

// LoadCodes implements Source.
func (s *FileSource) LoadCodes(ctx context.Context) ([]domain.BillingCode, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading code table file: %w", err)
	}

	var codes []domain.BillingCode
	if err := v.UnmarshalKey("codes", &codes); err != nil {
		return nil, fmt.Errorf("decoding code table file: %w", err)
	}
	if len(codes) == 0 {
		return nil, domain.NewValidationError("codes", "code table file contains no codes", s.path)
	}
	return codes, nil
}
