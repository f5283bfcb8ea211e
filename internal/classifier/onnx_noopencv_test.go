//go:build noopencv

package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadModel_WithoutOpenCV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushup_form.onnx")
	if err := os.WriteFile(path, []byte{0x08, 0x07}, 0644); err != nil {
		t.Fatalf("failed to write model file: %v", err)
	}

	model, err := LoadModel(ModelConfig{Path: path})
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("LoadModel() error = %v, want ErrModelNotFound", err)
	}
	if model != nil {
		t.Errorf("LoadModel() = %v, want nil", model)
	}
}
