package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeValidationQuery, http.StatusBadRequest},
		{CodeValidationDays, http.StatusBadRequest},
		{CodeNotFoundCrag, http.StatusNotFound},
		{CodeUpstreamForecast, http.StatusBadGateway},
		{CodeUpstreamMalformed, http.StatusBadGateway},
		{CodeDataLoad, http.StatusServiceUnavailable},
		{CodeInternalUnexpected, http.StatusInternalServerError},
		{Code("something_else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.code.HTTPStatus())
		})
	}
}

func TestAsAndHasCodeThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("fetch current: %w", Upstream("forecast service unreachable", cause))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeUpstreamForecast, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeUpstreamForecast))
	assert.False(t, HasCode(err, CodeNotFoundCrag))

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := DataLoad("open crag dataset", errors.New("no such file"))
	assert.Equal(t, "data_load_failed: open crag dataset: no such file", err.Error())
	assert.Equal(t, "not_found_crag: crag 7 not found", NotFound("crag 7 not found").Error())
}
