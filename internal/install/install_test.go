package install

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/google/go-cmp/cmp"
)

// fakeExecCommand is a replacement for `exec.Command` that runs the
// TestHelperProcess function instead of the real archive tools.
func fakeExecCommand(command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess pretends to extract archives by creating the files the
// real ones contain.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "No command\n")
		os.Exit(2)
	}

	write := func(p string) {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "unzip":
		// unzip -d DIR -o FILE
		write(filepath.Join(args[1], "chromedriver_linux64", "chromedriver"))
		os.Exit(0)
	case "tar":
		// tar -xzf FILE -C DIR
		write(filepath.Join(args[3], "geckodriver"))
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "%s: command not found\n", cmd)
	os.Exit(127)
}

type fakeBucket struct {
	objects map[string][]byte
	attrs   map[string]*storage.ObjectAttrs
}

func (b *fakeBucket) ReadAll(_ context.Context, object string) ([]byte, error) {
	data, ok := b.objects[object]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return data, nil
}

func (b *fakeBucket) Attrs(_ context.Context, object string) (*storage.ObjectAttrs, error) {
	a, ok := b.attrs[object]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return a, nil
}

func setHooks(t *testing.T, b bucket, gh string) {
	t.Helper()
	oldExec, oldBucket, oldGH, oldOS := execCommand, openBucket, githubURL, goos
	t.Cleanup(func() {
		execCommand, openBucket, githubURL, goos = oldExec, oldBucket, oldGH, oldOS
	})
	execCommand = fakeExecCommand
	openBucket = func(context.Context, string) (bucket, error) {
		if b == nil {
			return nil, errors.New("no bucket")
		}
		return b, nil
	}
	githubURL = gh
	goos = "linux"
}

func TestChromeDriverFile(t *testing.T) {
	sum := md5.Sum([]byte("zip"))
	b := &fakeBucket{
		objects: map[string][]byte{"Linux_x64/LAST_CHANGE": []byte("664981\n")},
		attrs: map[string]*storage.ObjectAttrs{
			"Linux_x64/664981/chromedriver_linux64.zip": {MediaLink: "https://example.com/cd.zip", MD5: sum[:]},
			"Linux_x64/123/chromedriver_linux64.zip":    {MediaLink: "https://example.com/123.zip", MD5: sum[:]},
		},
	}
	setHooks(t, b, "")

	for _, tc := range []struct {
		build, url string
	}{
		{"", "https://example.com/cd.zip"},
		{"123", "https://example.com/123.zip"},
	} {
		got, err := ChromeDriverFile(context.Background(), tc.build)
		if err != nil {
			t.Fatalf("ChromeDriverFile(%q) returned error: %v", tc.build, err)
		}
		want := File{
			URL:      tc.url,
			Name:     "chromedriver.zip",
			Hash:     hex.EncodeToString(sum[:]),
			HashType: "md5",
			Rename:   []string{"chromedriver_linux64/chromedriver", "chromedriver"},
			Binary:   "chromedriver",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ChromeDriverFile(%q) returned diff (-want/+got):\n%s", tc.build, diff)
		}
	}

	if _, err := ChromeDriverFile(context.Background(), "999"); err == nil {
		t.Error("ChromeDriverFile(999) returned nil error for a missing build")
	}
}

func TestGeckoDriverFile(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/mozilla/geckodriver/releases/latest" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"tag_name": "v0.24.0", "assets": [
			{"name": "geckodriver-v0.24.0-macos.tar.gz", "browser_download_url": "https://example.com/mac.tar.gz"},
			{"name": "geckodriver-v0.24.0-linux64.tar.gz", "browser_download_url": "https://example.com/linux.tar.gz"},
			{"name": "geckodriver-v0.24.0-win64.zip", "browser_download_url": "https://example.com/win.zip"}
		]}`)
	}))
	defer s.Close()

	for _, tc := range []struct {
		goos string
		want File
	}{
		{"linux", File{URL: "https://example.com/linux.tar.gz", Name: "geckodriver.tar.gz", Binary: "geckodriver"}},
		{"windows", File{URL: "https://example.com/win.zip", Name: "geckodriver.zip", Binary: "geckodriver.exe"}},
	} {
		setHooks(t, nil, s.URL)
		goos = tc.goos
		got, err := GeckoDriverFile(context.Background())
		if err != nil {
			t.Fatalf("GeckoDriverFile() on %s returned error: %v", tc.goos, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("GeckoDriverFile() on %s returned diff (-want/+got):\n%s", tc.goos, diff)
		}
	}
}

func newFileServer(t *testing.T, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(s.Close)
	return s, &hits
}

func TestDownload(t *testing.T) {
	setHooks(t, nil, "")
	s, hits := newFileServer(t, "zip")
	sum := md5.Sum([]byte("zip"))
	dir := t.TempDir()

	file := File{
		URL:      s.URL,
		Name:     "chromedriver.zip",
		Hash:     hex.EncodeToString(sum[:]),
		HashType: "md5",
		Rename:   []string{"chromedriver_linux64/chromedriver", "chromedriver"},
		Binary:   "chromedriver",
	}
	got, err := Download(file, dir)
	if err != nil {
		t.Fatalf("Download() returned error: %v", err)
	}
	if want := filepath.Join(dir, "chromedriver"); got != want {
		t.Errorf("Download() = %q, want %q", got, want)
	}
	fi, err := os.Stat(got)
	if err != nil {
		t.Fatalf("os.Stat(%q) returned error: %v", got, err)
	}
	if fi.Mode().Perm()&0100 == 0 {
		t.Errorf("%s is not executable: %v", got, fi.Mode())
	}

	if _, err := Download(file, dir); err != nil {
		t.Fatalf("second Download() returned error: %v", err)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("file fetched %d times, want 1", n)
	}
}

func TestDownloadHashMismatch(t *testing.T) {
	setHooks(t, nil, "")
	s, _ := newFileServer(t, "corrupt")
	file := File{
		URL:  s.URL,
		Name: "selenium-server.jar",
		Hash: "0000",
	}
	_, err := Download(file, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "hash") {
		t.Errorf("Download() returned error %v, want a hash mismatch", err)
	}
}

func TestDriverReusesInstalledBinary(t *testing.T) {
	setHooks(t, nil, "")
	dir := t.TempDir()
	want := filepath.Join(dir, "geckodriver")
	if err := os.WriteFile(want, nil, 0755); err != nil {
		t.Fatal(err)
	}
	got, err := Driver(context.Background(), Firefox, dir)
	if err != nil {
		t.Fatalf("Driver(firefox) returned error: %v", err)
	}
	if got != want {
		t.Errorf("Driver(firefox) = %q, want %q", got, want)
	}

	if _, err := Driver(context.Background(), "opera", dir); err == nil {
		t.Error("Driver(opera) returned nil error")
	}
}

func TestAll(t *testing.T) {
	files, _ := newFileServer(t, "archive")
	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"assets": [{"name": "geckodriver-v0.24.0-linux64.tar.gz", "browser_download_url": %q}]}`, files.URL)
	}))
	defer gh.Close()
	b := &fakeBucket{
		objects: map[string][]byte{"Linux_x64/LAST_CHANGE": []byte("1")},
		attrs: map[string]*storage.ObjectAttrs{
			"Linux_x64/1/chromedriver_linux64.zip": {MediaLink: files.URL},
		},
	}
	setHooks(t, b, gh.URL)

	dir := t.TempDir()
	got, err := All(context.Background(), dir, Chrome, Firefox)
	if err != nil {
		t.Fatalf("All() returned error: %v", err)
	}
	want := map[string]string{
		Chrome:  filepath.Join(dir, "chromedriver"),
		Firefox: filepath.Join(dir, "geckodriver"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("All() returned diff (-want/+got):\n%s", diff)
	}
}
