package validator

import (
	"errors"
	"testing"

	"ogmp3/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		hosts   []string
		want    string
		wantErr string
	}{
		{name: "watch url", raw: "https://www.youtube.com/watch?v=abc", want: "https://www.youtube.com/watch?v=abc"},
		{name: "short url trimmed", raw: "  https://youtu.be/abc \n", want: "https://youtu.be/abc"},
		{name: "substring anywhere", raw: "not-a-url youtube.com", want: "not-a-url youtube.com"},
		{name: "empty", raw: "", wantErr: "URL is missing"},
		{name: "blank", raw: "   ", wantErr: "URL is missing"},
		{name: "other site", raw: "https://vimeo.com/123", wantErr: "Invalid URL - YouTube only"},
		{name: "custom allow-list", raw: "https://vimeo.com/123", hosts: []string{"vimeo.com"}, want: "https://vimeo.com/123"},
		{name: "custom allow-list excludes default", raw: "https://youtu.be/abc", hosts: []string{"vimeo.com"}, wantErr: "Invalid URL - YouTube only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateURL(tt.raw, tt.hosts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperr.ErrValidation))
				assert.Equal(t, tt.wantErr, apperr.Message(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
