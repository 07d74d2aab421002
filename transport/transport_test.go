package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	base := errors.New("connection reset by peer")

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{name: "transient", err: Transient(base), want: ClassTransient},
		{name: "permanent", err: Permanent(base), want: ClassPermanent},
		{name: "wrapped transient", err: fmt.Errorf("send: %w", Transient(base)), want: ClassTransient},
		{name: "unclassified", err: base, want: ClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
			assert.Equal(t, tt.want == ClassTransient, IsTransient(tt.err))
		})
	}

	assert.False(t, IsTransient(nil))
}

func TestError_Error(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, "transport transient failure: boom", Transient(base).Error())
	assert.Equal(t,
		"transport permanent failure (403 AccessDenied): boom",
		(&Error{Class: ClassPermanent, StatusCode: 403, Code: "AccessDenied", Err: base}).Error(),
	)
	assert.Equal(t,
		"transport transient failure (503): boom",
		(&Error{Class: ClassTransient, StatusCode: 503, Err: base}).Error(),
	)
	assert.ErrorIs(t, Permanent(base), base)
}
