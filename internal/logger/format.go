// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Modified from github.com/united-manufacturing-hub/united-manufacturing-hub
// umh-core/pkg/logger for cutplan.

package logger

import (
	"fmt"
	"sort"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// PrettyConsoleEncoder produces lines like
//
//	[INFO]	[caller.go:12]	[Orchestrator]	material done - material=oak, runs=12
//
// Context fields added with With are kept in the embedded map encoder.
type PrettyConsoleEncoder struct {
	*zapcore.MapObjectEncoder
	cfg  zapcore.EncoderConfig
	pool buffer.Pool
}

// NewPrettyConsoleEncoder creates a new PrettyConsoleEncoder instance.
func NewPrettyConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &PrettyConsoleEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		cfg:              cfg,
		pool:             buffer.NewPool(),
	}
}

// Clone implements zapcore.Encoder.
func (e *PrettyConsoleEncoder) Clone() zapcore.Encoder {
	c := &PrettyConsoleEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		cfg:              e.cfg,
		pool:             e.pool,
	}
	for k, v := range e.Fields {
		c.Fields[k] = v
	}
	return c
}

// EncodeEntry formats a log entry in a human-readable format.
func (e *PrettyConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := e.pool.Get()

	line.AppendString("[")
	line.AppendString(entry.Level.CapitalString())
	line.AppendByte(']')
	line.AppendByte('\t')

	if entry.Caller.Defined {
		line.AppendString("[")
		line.AppendString(entry.Caller.TrimmedPath())
		line.AppendByte(']')
		line.AppendByte('\t')
	}

	if entry.LoggerName != "" {
		line.AppendString("[")
		line.AppendString(entry.LoggerName)
		line.AppendByte(']')
		line.AppendByte('\t')
	}

	line.AppendString(entry.Message)

	all := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		all.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(all)
	}
	if len(all.Fields) > 0 {
		line.AppendString(" - ")
		addFields(line, all.Fields)
	}

	if entry.Stack != "" && e.cfg.StacktraceKey != "" {
		line.AppendByte('\n')
		line.AppendString(entry.Stack)
	}

	line.AppendString(e.cfg.LineEnding)
	return line, nil
}

func addFields(line *buffer.Buffer, fields map[string]interface{}) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			line.AppendString(", ")
		}
		line.AppendString(k)
		line.AppendString("=")
		line.AppendString(fmt.Sprintf("%v", fields[k]))
	}
}
