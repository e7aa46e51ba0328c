package mocks

import "testing"

func TestLogger(t *testing.T) {
	t.Run("Debugf", func(t *testing.T) {
		var called bool
		lo := &Logger{
			MockDebugf: func(message string, v ...any) {
				called = true
			},
		}
		lo.Debugf("antani", 1, 2, 3, 4)
		if !called {
			t.Fatal("not called")
		}
	})

	t.Run("Infof", func(t *testing.T) {
		var called bool
		lo := &Logger{
			MockInfof: func(message string, v ...any) {
				called = true
			},
		}
		lo.Infof("antani", 1, 2, 3, 4)
		if !called {
			t.Fatal("not called")
		}
	})

	t.Run("Warnf", func(t *testing.T) {
		var called bool
		lo := &Logger{
			MockWarnf: func(message string, v ...any) {
				called = true
			},
		}
		lo.Warnf("antani", 1, 2, 3, 4)
		if !called {
			t.Fatal("not called")
		}
	})
}
