package logging

import "github.com/rs/zerolog"

// Zerolog adapts a zerolog.Logger.
type Zerolog struct{ L zerolog.Logger }

var _ Logger = Zerolog{}

func (z Zerolog) Debug(msg string, f Fields) { z.L.Debug().Fields(map[string]any(f)).Msg(msg) }
func (z Zerolog) Info(msg string, f Fields)  { z.L.Info().Fields(map[string]any(f)).Msg(msg) }
func (z Zerolog) Warn(msg string, f Fields)  { z.L.Warn().Fields(map[string]any(f)).Msg(msg) }
func (z Zerolog) Error(msg string, f Fields) { z.L.Error().Fields(map[string]any(f)).Msg(msg) }
