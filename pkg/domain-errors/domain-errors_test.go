package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite covers the error primitives every layer relies on:
// wrapped domain errors keep their original code and errors.Is matches by code.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "person not found"}
		s.Equal("person not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeCrypto}
		s.Equal("crypto_error", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("database connection failed")
		err := &Error{Code: CodeInternal, Message: "store error", Err: inner}
		s.Equal(inner, err.Unwrap())
		s.Equal(inner, errors.Unwrap(err))
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "person not found"}
		err2 := &Error{Code: CodeNotFound, Message: "contract not found"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		s.False((&Error{Code: CodeNotFound}).Is(&Error{Code: CodeInternal}))
	})

	s.Run("does not match non-domain errors", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not found")))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeNotFound, Message: "original"}
		wrapped := fmt.Errorf("load person: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeNotFound}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves existing domain code", func() {
		inner := New(CodeCrypto, "bad padding")
		err := Wrap(inner, CodeInternal, "seal person")
		s.True(HasCode(err, CodeCrypto))
		s.Equal("seal person", err.Error())
	})

	s.Run("applies code to plain errors", func() {
		err := Wrap(errors.New("connection reset"), CodeInternal, "append audit entry")
		s.True(HasCode(err, CodeInternal))
		s.ErrorContains(errors.Unwrap(err), "connection reset")
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeNotFound, CodeOf(fmt.Errorf("ctx: %w", New(CodeNotFound, "x"))))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
}

func (s *DomainErrorsSuite) TestNewf() {
	err := Newf(CodeNotFound, "person %d not found", 42)
	s.Equal("person 42 not found", err.Error())
	s.True(HasCode(err, CodeNotFound))
}

func (s *DomainErrorsSuite) TestOpaque() {
	for _, c := range []Code{CodeInternal, CodeCrypto, CodeConfiguration} {
		s.True(c.Opaque(), string(c))
	}
	s.False(CodeNotEligible.Opaque())
	s.False(CodeValidation.Opaque())
	s.False(HasCode(errors.New("plain"), CodeInternal))
}
