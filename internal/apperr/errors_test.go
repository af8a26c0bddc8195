package apperr

import (
	"errors"
	"io/fs"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	err := Wrap(ErrFilesystem, "delete", "video_1.mp3", fs.ErrPermission)

	assert.True(t, errors.Is(err, ErrFilesystem))
	assert.True(t, errors.Is(err, fs.ErrPermission))
	assert.Equal(t, "filesystem error: delete: video_1.mp3: permission denied", err.Error())
}

func TestWrapWithoutMarker(t *testing.T) {
	err := Wrap(nil, "", "", nil)
	assert.True(t, errors.Is(err, ErrFilesystem))
	assert.Equal(t, "filesystem error: failure", err.Error())
}

func TestTimeoutMatchesBothMarkers(t *testing.T) {
	err := Timeout("yt-dlp", 2*time.Second)

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, ErrToolExecution))
	assert.Equal(t, "yt-dlp exceeded 2s", Message(err))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Wrap(ErrValidation, "", "URL is missing", nil)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(Wrap(ErrArtifactNotFound, "open", "x.mp3", nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Wrap(ErrParsing, "info", "bad json", nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Timeout("yt-dlp", time.Second)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "URL is missing", Message(Wrap(ErrValidation, "", "URL is missing", nil)))
	assert.Equal(t, "yt-dlp: exit status 1", Message(Wrap(ErrToolExecution, "yt-dlp", "exit status 1", nil)))
}
