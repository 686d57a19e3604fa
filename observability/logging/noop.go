// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package logging

import "context"

// noOpLogger discards everything. It is the default Logger for components
// constructed without one, so that logging is opt-in but never nil.
type noOpLogger struct{}

// NoOp returns a Logger that discards every call.
func NoOp() Logger {
	return noOpLogger{}
}

func (noOpLogger) Debug(context.Context, string, ...Field) {}
func (noOpLogger) Info(context.Context, string, ...Field)  {}
func (noOpLogger) Warn(context.Context, string, ...Field)  {}
func (noOpLogger) Error(context.Context, string, ...Field) {}
func (noOpLogger) Fatal(context.Context, string, ...Field) {}
func (noOpLogger) With(...Field) Logger                    { return noOpLogger{} }
func (noOpLogger) SetLevel(Level)                          {}
func (noOpLogger) SetSamplingRate(float64)                 {}
