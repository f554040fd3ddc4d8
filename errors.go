// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package wirehdl

import "fmt"

// An ElaborationError reports a structural problem found while flattening a
// module hierarchy: unknown module references, arity or width mismatches,
// and multiply-driven signals.
type ElaborationError struct {
	Module string // module being elaborated
	Signal string // offending signal or port name, if any
	Msg    string
}

func (e *ElaborationError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("elaborate %s: signal %s: %s", e.Module, e.Signal, e.Msg)
	}
	return fmt.Sprintf("elaborate %s: %s", e.Module, e.Msg)
}

func elabErrf(module, signal, format string, args ...interface{}) error {
	return &ElaborationError{Module: module, Signal: signal, Msg: fmt.Sprintf(format, args...)}
}

// A LevelizationError reports an undriven signal or an illegal combinational
// cycle (feedback not passing through a DFF).
type LevelizationError struct {
	Signal string
	Msg    string
}

func (e *LevelizationError) Error() string {
	return fmt.Sprintf("levelize: signal %s: %s", e.Signal, e.Msg)
}

// A RuntimeError reports misuse of a compiled circuit, such as a signal id
// out of range.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string {
	return "circuit: " + e.Msg
}

func runtimeErrf(format string, args ...interface{}) error {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}
