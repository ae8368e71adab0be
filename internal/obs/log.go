package obs

import "go.uber.org/zap"

// NewLogger builds the shared structured logger. Development mode switches
// to console encoding with debug level.
func NewLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
