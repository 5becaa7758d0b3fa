// Copyright 2026 The Crimeline Authors
// This file is part of crimeline.
//
// crimeline is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// crimeline is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with crimeline. If not, see <http://www.gnu.org/licenses/>.

package common

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.SugaredLogger]
var loggerInit sync.Once

func defaultLogger() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}

// Logger returns the package-level structured logger, lazily defaulting to
// a production zap logger the first time it's used.
func Logger() *zap.SugaredLogger {
	loggerInit.Do(func() {
		logger.Store(defaultLogger())
	})
	return logger.Load()
}

// SetLogger rebinds the package-level logger. Intended for a host process to
// wire its own zap configuration in; tests typically install zap.NewNop().
func SetLogger(l *zap.SugaredLogger) {
	loggerInit.Do(func() {})
	logger.Store(l)
}
