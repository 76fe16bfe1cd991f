// Copyright 2016 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cdxzipnum holds the error taxonomy shared by the cdxj, merge,
// zipnum and search packages.
package cdxzipnum

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error so callers can decide whether to treat it as
// fatal, skip it, or count it in a run summary.
type Kind int

const (
	// KindIO covers read/write/seek failures on local files or stdio.
	KindIO Kind = iota
	// KindMalformedRecord covers a CDXJ line missing its timestamp, or an
	// invalid .idx row.
	KindMalformedRecord
	// KindBadJSON covers a JSON body that a field filter could not parse.
	KindBadJSON
	// KindBadRegex covers a filter regex that failed to compile.
	KindBadRegex
	// KindBadShard covers a corrupt or short gzip member.
	KindBadShard
	// KindMissingFile covers an .idx entry whose shard cannot be resolved.
	KindMissingFile
	// KindInvalidParam covers an out-of-range construction parameter.
	KindInvalidParam
	// KindCancelled covers cooperative cancellation via context.Context.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "Io"
	case KindMalformedRecord:
		return "MalformedRecord"
	case KindBadJSON:
		return "BadJson"
	case KindBadRegex:
		return "BadRegex"
	case KindBadShard:
		return "BadShard"
	case KindMissingFile:
		return "MissingFile"
	case KindInvalidParam:
		return "InvalidParam"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the typed error returned by every exported operation in this
// module. Wrap with errors.Wrap at I/O boundaries before constructing one
// so Cause() still reaches the underlying *os.PathError etc.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause reports the root cause, unwrapping any github.com/pkg/errors
// annotations added along the way.
func (e *Error) Cause() error { return errors.Cause(e.Err) }

// NewError constructs an Error of the given Kind wrapping err. It returns
// nil if err is nil, so it is safe to write:
//
//	return NewError(KindIO, err)
func NewError(k Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Err: err}
}

// Wrap annotates err with msg (in the manner of errors.Wrap) and tags it
// with Kind k.
func Wrap(k Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Err: errors.Wrap(err, msg)}
}

// KindOf reports the Kind of err if it (or something it wraps) is an
// *Error, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
