package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name string
		opt  ConfigOption
	}{
		{"zero top_k", WithTopK(0)},
		{"negative history", WithHistoryWindow(-1)},
		{"min score at one", WithMinScore(1)},
		{"zero quote limit", WithQuoteLimit(0)},
		{"zero timeout", WithCallTimeout(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewConfig(tt.opt).Validate())
		})
	}

	c := NewConfig(WithTopK(10), WithCallTimeout(time.Second))
	assert.Equal(t, 10, c.TopK)
	assert.Equal(t, time.Second, c.CallTimeout)
}
