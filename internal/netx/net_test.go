package netx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutPresigned_OK(t *testing.T) {
	var gotBody []byte
	var gotCT, gotMethod string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	err := PutPresigned(context.Background(), ts.Client(), ts.URL+"/photos/p1.jpg?X-Amz-Signature=abc", "image/jpeg", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "image/jpeg", gotCT)
	assert.Equal(t, []byte("jpeg"), gotBody)
}

func TestPutPresigned_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("SignatureDoesNotMatch"))
	}))
	defer ts.Close()

	err := PutPresigned(context.Background(), nil, ts.URL, "image/jpeg", bytes.NewReader(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
}

func TestPutPresigned_BadURL(t *testing.T) {
	err := PutPresigned(context.Background(), nil, "://bad", "image/jpeg", bytes.NewReader(nil))
	require.Error(t, err)
}
