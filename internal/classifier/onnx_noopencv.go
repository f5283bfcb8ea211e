//go:build noopencv

package classifier

import "fmt"

// loadONNX reports the model as unavailable in builds without OpenCV, so the
// service runs in counting-only mode.
func loadONNX(config ModelConfig) (Model, error) {
	return nil, fmt.Errorf("%w: %s (built without opencv)", ErrModelNotFound, config.Path)
}
