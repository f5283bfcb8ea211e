package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/formcoach/internal/features"
	"github.com/ayusman/formcoach/internal/pose"
	"github.com/ayusman/formcoach/internal/window"
)

// fullWindow returns a window filled with push-up frames.
func fullWindow(t *testing.T) *window.Window {
	t.Helper()

	w := window.New(window.DefaultSize)
	for i := 0; i < window.DefaultSize; i++ {
		w.Push(features.Build(pose.PushUpLandmarks(170)))
	}
	return w
}

func TestClassify_WindowNotFull(t *testing.T) {
	model := NewMockModel(0.1, 0.1)
	c := New(model)

	w := window.New(window.DefaultSize)
	for i := 0; i < window.DefaultSize-1; i++ {
		w.Push(features.Build(pose.PushUpLandmarks(170)))
	}

	_, err := c.Classify(context.Background(), w)
	if !errors.Is(err, ErrWindowNotFull) {
		t.Fatalf("expected ErrWindowNotFull, got %v", err)
	}
	if model.Calls() != 0 {
		t.Errorf("model called %d times, want 0", model.Calls())
	}
}

func TestClassify_Labels(t *testing.T) {
	tests := []struct {
		name       string
		probs      []float64
		wantActive []string
		wantGood   bool
		feedback   string
	}{
		{"good form", []float64{0.1, 0.2}, nil, true, ""},
		{"sagging", []float64{0.9, 0.1}, []string{HipsSagging}, false, "Lift Hips!"},
		{"piking", []float64{0.2, 0.85}, []string{HipsPiking}, false, "Lower Hips!"},
		{"both prefers sagging", []float64{0.8, 0.95}, []string{HipsSagging, HipsPiking}, false, "Lift Hips!"},
		{"exactly at threshold is inactive", []float64{0.7, 0.7}, nil, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(NewMockModel(tt.probs...))

			res, err := c.Classify(context.Background(), fullWindow(t))
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}

			if res.Good() != tt.wantGood {
				t.Errorf("Good() = %v, want %v", res.Good(), tt.wantGood)
			}
			if len(res.Active) != len(tt.wantActive) {
				t.Fatalf("Active = %v, want %v", res.Active, tt.wantActive)
			}
			for i := range tt.wantActive {
				if res.Active[i] != tt.wantActive[i] {
					t.Errorf("Active[%d] = %q, want %q", i, res.Active[i], tt.wantActive[i])
				}
			}
			if got := c.Feedback(res); got != tt.feedback {
				t.Errorf("Feedback() = %q, want %q", got, tt.feedback)
			}
			if res.Probabilities[HipsSagging] != tt.probs[0] {
				t.Errorf("Probabilities[%s] = %v, want %v", HipsSagging, res.Probabilities[HipsSagging], tt.probs[0])
			}
		})
	}
}

func TestClassify_Priority(t *testing.T) {
	c := New(NewMockModel(0.9, 0.9), WithPriority(HipsPiking, HipsSagging))

	res, err := c.Classify(context.Background(), fullWindow(t))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got := c.Feedback(res); got != "Lower Hips!" {
		t.Errorf("Feedback() = %q, want %q", got, "Lower Hips!")
	}
}

func TestClassify_Confidence(t *testing.T) {
	c := New(NewMockModel(0.6, 0.1), WithConfidence(0.5))
	if c.Confidence() != 0.5 {
		t.Fatalf("Confidence() = %v, want 0.5", c.Confidence())
	}

	res, err := c.Classify(context.Background(), fullWindow(t))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !res.Has(HipsSagging) {
		t.Error("expected hips_sagging to be active at 0.5 confidence")
	}

	// Out-of-range values keep the default.
	if got := New(nil, WithConfidence(1.5)).Confidence(); got != DefaultConfidence {
		t.Errorf("Confidence() = %v, want %v", got, DefaultConfidence)
	}
}

func TestClassify_InferenceError(t *testing.T) {
	model := NewMockModel()
	model.SetError(errors.New("tensor mismatch"))
	c := New(model)

	_, err := c.Classify(context.Background(), fullWindow(t))

	var inferErr *InferenceError
	if !errors.As(err, &inferErr) {
		t.Fatalf("expected *InferenceError, got %v", err)
	}
	if inferErr.Err.Error() != "tensor mismatch" {
		t.Errorf("wrapped error = %v", inferErr.Err)
	}
}

func TestClassify_LabelCount(t *testing.T) {
	c := New(NewMockModel(0.1, 0.2, 0.3))

	_, err := c.Classify(context.Background(), fullWindow(t))
	if !errors.Is(err, ErrLabelCount) {
		t.Errorf("expected ErrLabelCount, got %v", err)
	}
}

func TestClassifier_Disabled(t *testing.T) {
	var c *Classifier
	if c.Enabled() {
		t.Error("nil classifier should be disabled")
	}
	if New(nil).Enabled() {
		t.Error("classifier without model should be disabled")
	}
	if _, err := New(nil).Classify(context.Background(), fullWindow(t)); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestHumanLabel(t *testing.T) {
	tests := map[string]string{
		"hips_sagging": "Hips Sagging",
		"hips_piking":  "Hips Piking",
		"knees_in":     "Knees In",
		"":             "",
	}
	for in, want := range tests {
		if got := HumanLabel(in); got != want {
			t.Errorf("HumanLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPModel_Predict(t *testing.T) {
	var got predictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(predictResponse{Probabilities: []float64{0.92, 0.05}})
	}))
	defer srv.Close()

	model, err := LoadModel(ModelConfig{URL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	defer model.Close()

	c := New(model)
	res, err := c.Classify(context.Background(), fullWindow(t))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if len(got.Keypoints) != window.DefaultSize || len(got.Keypoints[0]) != features.NumKeypoints {
		t.Errorf("keypoints shape = %dx%d", len(got.Keypoints), len(got.Keypoints[0]))
	}
	if len(got.Angles) != window.DefaultSize || len(got.Angles[0]) != features.NumAngles {
		t.Errorf("angles shape = %dx%d", len(got.Angles), len(got.Angles[0]))
	}
	if !res.Has(HipsSagging) || res.Has(HipsPiking) {
		t.Errorf("Active = %v, want [hips_sagging]", res.Active)
	}
}

func TestHTTPModel_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(NewHTTPModel(ModelConfig{URL: srv.URL}))

	_, err := c.Classify(context.Background(), fullWindow(t))
	var inferErr *InferenceError
	if !errors.As(err, &inferErr) {
		t.Errorf("expected *InferenceError, got %v", err)
	}
}

func TestLoadModel_NotFound(t *testing.T) {
	t.Run("empty config", func(t *testing.T) {
		if _, err := LoadModel(ModelConfig{}); !errors.Is(err, ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pushup_form.onnx")
		if _, err := os.Stat(path); err == nil {
			t.Fatal("fixture path unexpectedly exists")
		}
		if _, err := LoadModel(ModelConfig{Path: path}); !errors.Is(err, ErrModelNotFound) {
			t.Errorf("expected ErrModelNotFound, got %v", err)
		}
	})
}

func TestMockModel(t *testing.T) {
	m := NewMockModel(0.3)

	out, _ := m.Predict(context.Background(), nil, nil)
	out[0] = 1
	again, _ := m.Predict(context.Background(), nil, nil)
	if again[0] != 0.3 {
		t.Error("Predict should return a copy")
	}
	if m.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", m.Calls())
	}

	m.Close()
	if !m.Closed() {
		t.Error("Closed() = false after Close")
	}
}
