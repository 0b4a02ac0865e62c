package logging

import "go.uber.org/zap"

// Zap adapts a *zap.Logger.
type Zap struct{ L *zap.Logger }

var _ Logger = Zap{}

func (z Zap) Debug(msg string, f Fields) { z.L.Debug(msg, zapFields(f)...) }
func (z Zap) Info(msg string, f Fields)  { z.L.Info(msg, zapFields(f)...) }
func (z Zap) Warn(msg string, f Fields)  { z.L.Warn(msg, zapFields(f)...) }
func (z Zap) Error(msg string, f Fields) { z.L.Error(msg, zapFields(f)...) }

func zapFields(f Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
