package formats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/asaidimu/go-cdibase/core/persistence"
	"github.com/asaidimu/go-cdibase/core/schema"
	"go.uber.org/zap"
)

var (
	// ErrFormatExists is returned when adding a format whose safe name is
	// already taken for its kind.
	ErrFormatExists = errors.New("format already exists")
	// ErrEmptyName is returned when adding a format without a name.
	ErrEmptyName = errors.New("format name is empty")
)

// Manager ties format files to their metadata rows. It implements
// persistence.FormatLoader for report generation.
type Manager struct {
	files  *FileStore
	meta   persistence.FormatStore
	logger *zap.Logger
}

var _ persistence.FormatLoader = (*Manager)(nil)

// NewManager creates a format manager.
func NewManager(files *FileStore, meta persistence.FormatStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{files: files, meta: meta, logger: logger}
}

// Add validates and stores a format file under a human readable name. The
// returned issues are warnings about content that will be ignored.
func (m *Manager) Add(ctx context.Context, kind schema.FormatKind, humanName string, data []byte) (schema.FormatMetadata, []schema.Issue, error) {
	humanName = strings.TrimSpace(humanName)
	safeName := schema.SafeName(humanName)
	if safeName == "" {
		return schema.FormatMetadata{}, nil, ErrEmptyName
	}

	issues, err := Check(kind, data)
	if err != nil {
		return schema.FormatMetadata{}, issues, err
	}

	existing, err := m.meta.GetFormat(ctx, kind, safeName)
	if err != nil {
		return schema.FormatMetadata{}, issues, err
	}
	if existing != nil {
		return schema.FormatMetadata{}, issues, fmt.Errorf("%w: %s %q", ErrFormatExists, kind, safeName)
	}

	filename, err := m.files.Save(ctx, data)
	if err != nil {
		return schema.FormatMetadata{}, issues, err
	}
	meta := schema.FormatMetadata{HumanName: humanName, SafeName: safeName, Filename: filename}
	if err := m.meta.SaveFormat(ctx, kind, meta); err != nil {
		if rmErr := m.files.Remove(filename); rmErr != nil {
			m.logger.Warn("Failed to remove orphaned format file", zap.String("filename", filename), zap.Error(rmErr))
		}
		return schema.FormatMetadata{}, issues, fmt.Errorf("failed to save %s format metadata: %w", kind, err)
	}

	m.logger.Info("Added format",
		zap.String("kind", string(kind)),
		zap.String("safe_name", safeName),
		zap.String("filename", filename),
		zap.Int("warnings", len(issues)))
	return meta, issues, nil
}

// List returns the stored formats of one kind.
func (m *Manager) List(ctx context.Context, kind schema.FormatKind) ([]schema.FormatMetadata, error) {
	return m.meta.ListFormats(ctx, kind)
}

// Remove deletes a format and its file. It reports whether the format
// existed.
func (m *Manager) Remove(ctx context.Context, kind schema.FormatKind, safeName string) (bool, error) {
	meta, err := m.meta.GetFormat(ctx, kind, safeName)
	if err != nil || meta == nil {
		return false, err
	}
	if _, err := m.meta.DeleteFormat(ctx, kind, safeName); err != nil {
		return false, err
	}
	if err := m.files.Remove(meta.Filename); err != nil {
		return true, err
	}
	m.logger.Info("Removed format", zap.String("kind", string(kind)), zap.String("safe_name", safeName))
	return true, nil
}

// LoadPresentationFormat returns the named presentation format, or nil
// when it is not stored.
func (m *Manager) LoadPresentationFormat(ctx context.Context, name string) (*schema.PresentationFormat, error) {
	meta, data, err := m.load(ctx, schema.FormatKindPresentation, name)
	if err != nil || meta == nil {
		return nil, err
	}
	return ParsePresentationFormat(data, *meta)
}

// LoadCDIFormat returns the named CDI format, or nil when it is not stored.
func (m *Manager) LoadCDIFormat(ctx context.Context, safeName string) (*schema.CDIFormat, error) {
	meta, data, err := m.load(ctx, schema.FormatKindCDI, safeName)
	if err != nil || meta == nil {
		return nil, err
	}
	return ParseCDIFormat(data, *meta)
}

func (m *Manager) load(ctx context.Context, kind schema.FormatKind, safeName string) (*schema.FormatMetadata, []byte, error) {
	meta, err := m.meta.GetFormat(ctx, kind, safeName)
	if err != nil || meta == nil {
		return nil, nil, err
	}
	data, err := m.files.Read(meta.Filename)
	if errors.Is(err, ErrNotFound) {
		m.logger.Warn("Format file missing from uploads directory",
			zap.String("kind", string(kind)),
			zap.String("safe_name", safeName),
			zap.String("filename", meta.Filename))
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return meta, data, nil
}
