package ml

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() Frame {
	return Frame{
		Filename:    "capture.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("fake-jpeg-bytes"),
	}
}

func TestCheckFrame_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, checkFacePath, r.URL.Path)

		err := r.ParseMultipartForm(1 << 20)
		require.NoError(t, err)
		_, header, err := r.FormFile("image")
		require.NoError(t, err)
		assert.Equal(t, "capture.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cheating_score": 85, "mobile_detected": true, "message": "Phone visible", "issues": ["mobile_device"]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second)
	result, err := client.CheckFrame(context.Background(), sampleFrame())

	require.NoError(t, err)
	assert.Equal(t, 85.0, result.CheatingScore)
	assert.True(t, result.MobileDetected)
	assert.Equal(t, "Phone visible", result.Message)
	assert.Equal(t, []string{"mobile_device"}, result.Issues)
}

func TestCheckFrame_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second)
	_, err := client.CheckFrame(context.Background(), sampleFrame())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCheckFrame_Unreachable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := client.CheckFrame(context.Background(), sampleFrame())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestDecodeResult_Malformed(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `<html>oops</html>`},
		{"missing score", `{"mobile_detected": false}`},
		{"missing flag", `{"cheating_score": 10}`},
		{"score above range", `{"cheating_score": 150, "mobile_detected": false}`},
		{"score below range", `{"cheating_score": -1, "mobile_detected": false}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeResult([]byte(tc.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
		})
	}
}

func TestDecodeResult_BoundaryScores(t *testing.T) {
	for _, score := range []string{"0", "100"} {
		result, err := decodeResult([]byte(`{"cheating_score": ` + score + `, "mobile_detected": false}`))
		require.NoError(t, err)
		assert.NotNil(t, result)
	}
}
