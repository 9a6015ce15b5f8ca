package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCmdAppInstaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<AppInstaller>
  <MainBundle Uri="https://example.com/Acme.msixbundle"/>
</AppInstaller>`))
	}))
	defer server.Close()

	var out bytes.Buffer
	root := NewRootCmd(testConfig(t), testLogger(), "test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"resolve", server.URL + "/Acme.appinstaller"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "https://example.com/Acme.msixbundle")
}

func TestResolveCmdPassThrough(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd(testConfig(t), testLogger(), "test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"resolve", "https://example.com/acme-setup.exe"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "https://example.com/acme-setup.exe")
}

func TestResolveCmdFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	root := NewRootCmd(testConfig(t), testLogger(), "test")
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"resolve", server.URL + "/Acme.appinstaller"})

	assert.Error(t, root.Execute())
}
