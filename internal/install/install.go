// Package install downloads the driver binaries that NewDriver starts:
// chromedriver from the Chromium snapshot bucket, geckodriver from its GitHub
// releases and the Selenium standalone server.
package install

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/golang/glog"
	"github.com/google/go-github/v27/github"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// Names of the installable targets.
const (
	Chrome   = "chrome"
	Firefox  = "firefox"
	Selenium = "selenium"
)

// File describes how to download and unpack a file from the Web.
type File struct {
	URL  string
	Name string
	// Hash is the hex digest of the downloaded file. Empty skips
	// verification.
	Hash     string
	HashType string // default is sha256
	// Rename moves Rename[0] to Rename[1] after extraction. Both are relative
	// to the download directory.
	Rename []string
	// Binary is the installed file relative to the download directory. Empty
	// means Name.
	Binary string
}

// Path returns where the file is stored in dir.
func (f File) Path(dir string) string {
	return filepath.Join(dir, f.Name)
}

// BinaryPath returns where the installed binary is in dir.
func (f File) BinaryPath(dir string) string {
	if f.Binary == "" {
		return f.Path(dir)
	}
	return filepath.Join(dir, f.Binary)
}

// SeleniumFile describes how to download the Selenium standalone JAR.
var SeleniumFile = File{
	URL:  "https://selenium-release.storage.googleapis.com/3.141/selenium-server-standalone-3.141.59.jar",
	Name: "selenium-server.jar",
	Hash: "acf71b77d1b66b55db6fb0bed6d8bae2bbd481311bcbedfeff472c0d15e8f3cb",
}

// Hooks for tests.
var (
	execCommand = exec.Command
	httpClient  = http.DefaultClient
	openBucket  = openGCSBucket
	// githubURL overrides the GitHub API endpoint when set.
	githubURL string
	goos      = runtime.GOOS
)

// bucket is the part of a Cloud Storage bucket the installer reads.
type bucket interface {
	ReadAll(ctx context.Context, object string) ([]byte, error)
	Attrs(ctx context.Context, object string) (*storage.ObjectAttrs, error)
}

type gcsBucket struct {
	*storage.BucketHandle
}

func openGCSBucket(ctx context.Context, name string) (bucket, error) {
	client, err := storage.NewClient(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("cannot create a storage client: %v", err)
	}
	return gcsBucket{client.Bucket(name)}, nil
}

func (b gcsBucket) ReadAll(ctx context.Context, object string) ([]byte, error) {
	r, err := b.Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b gcsBucket) Attrs(ctx context.Context, object string) (*storage.ObjectAttrs, error) {
	return b.Object(object).Attrs(ctx)
}

// chromeSnapshot names the snapshot directory and chromedriver archive of a
// platform.
type chromeSnapshot struct {
	prefix, archive string
}

var chromeSnapshots = map[string]chromeSnapshot{
	"linux":   {"Linux_x64", "chromedriver_linux64"},
	"darwin":  {"Mac", "chromedriver_mac64"},
	"windows": {"Win", "chromedriver_win32"},
}

// ChromeDriverFile describes how to download chromedriver from the
// chromium-browser-snapshots bucket. An empty build means the latest one.
func ChromeDriverFile(ctx context.Context, build string) (File, error) {
	const storageBktName = "chromium-browser-snapshots"
	snap, ok := chromeSnapshots[goos]
	if !ok {
		return File{}, fmt.Errorf("no chromedriver snapshots for %s", goos)
	}
	gcsPath := fmt.Sprintf("gs://%s/", storageBktName)

	bkt, err := openBucket(ctx, storageBktName)
	if err != nil {
		return File{}, err
	}
	if build == "" {
		lastChange := path.Join(snap.prefix, "LAST_CHANGE")
		data, err := bkt.ReadAll(ctx, lastChange)
		if err != nil {
			return File{}, fmt.Errorf("cannot read from %s%s file: %v", gcsPath, lastChange, err)
		}
		build = strings.TrimSpace(string(data))
	}

	object := path.Join(snap.prefix, build, snap.archive+".zip")
	attrs, err := bkt.Attrs(ctx, object)
	if err != nil {
		return File{}, fmt.Errorf("cannot get the chromedriver package %s%s attrs: %v", gcsPath, object, err)
	}
	exe := executable("chromedriver")
	return File{
		URL:      attrs.MediaLink,
		Name:     "chromedriver.zip",
		Hash:     hex.EncodeToString(attrs.MD5),
		HashType: "md5",
		Rename:   []string{path.Join(snap.archive, exe), exe},
		Binary:   exe,
	}, nil
}

var geckoPlatforms = map[string]string{
	"linux":   "linux64",
	"darwin":  "macos",
	"windows": "win64",
}

// GeckoDriverFile describes how to download the latest geckodriver release.
func GeckoDriverFile(ctx context.Context) (File, error) {
	platform, ok := geckoPlatforms[goos]
	if !ok {
		return File{}, fmt.Errorf("no geckodriver releases for %s", goos)
	}
	assetRE := regexp.MustCompile(`^geckodriver-v[0-9.]+-` + platform + `\.(tar\.gz|zip)$`)

	client := github.NewClient(httpClient)
	if githubURL != "" {
		u, err := url.Parse(strings.TrimSuffix(githubURL, "/") + "/")
		if err != nil {
			return File{}, err
		}
		client.BaseURL = u
	}
	rel, _, err := client.Repositories.GetLatestRelease(ctx, "mozilla", "geckodriver")
	if err != nil {
		return File{}, err
	}
	for _, a := range rel.Assets {
		m := assetRE.FindStringSubmatch(a.GetName())
		if m == nil {
			continue
		}
		u := a.GetBrowserDownloadURL()
		if u == "" {
			return File{}, fmt.Errorf("%s does not have a download URL", a.GetName())
		}
		return File{
			URL:    u,
			Name:   "geckodriver." + m[1],
			Binary: executable("geckodriver"),
		}, nil
	}
	return File{}, fmt.Errorf("release for %s not found at https://github.com/mozilla/geckodriver/releases", platform)
}

func executable(name string) string {
	if goos == "windows" {
		return name + ".exe"
	}
	return name
}

// Download fetches file into dir unless a copy with the same hash is already
// there, unpacks it and returns the path of the installed binary.
func Download(file File, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	if file.Hash != "" && fileSameHash(file, dir) {
		glog.Infof("Skipping file %q which has already been downloaded.", file.Name)
	} else {
		glog.Infof("Downloading %q from %q", file.Name, file.URL)
		if err := downloadFile(file, dir); err != nil {
			return "", err
		}
	}

	if err := unzipArchive(file, dir); err != nil {
		return "", err
	}

	if rename := file.Rename; len(rename) == 2 {
		from := filepath.Join(dir, rename[0])
		to := filepath.Join(dir, rename[1])
		glog.Infof("Renaming %q to %q", from, to)
		os.RemoveAll(to) // Ignore error.
		if err := os.Rename(from, to); err != nil {
			return "", fmt.Errorf("error renaming %q to %q: %v", from, to, err)
		}
	}

	bin := file.BinaryPath(dir)
	if file.Binary != "" {
		if err := os.Chmod(bin, 0755); err != nil {
			return "", err
		}
	}
	return bin, nil
}

// Driver installs the driver for browser into dir and returns its path. A
// driver already present in dir is reused.
func Driver(ctx context.Context, browser, dir string) (string, error) {
	var (
		file File
		err  error
	)
	switch browser {
	case Chrome:
		if p := filepath.Join(dir, executable("chromedriver")); isFile(p) {
			return p, nil
		}
		file, err = ChromeDriverFile(ctx, "")
	case Firefox:
		if p := filepath.Join(dir, executable("geckodriver")); isFile(p) {
			return p, nil
		}
		file, err = GeckoDriverFile(ctx)
	case Selenium:
		file = SeleniumFile
	default:
		return "", fmt.Errorf("no driver to install for %q", browser)
	}
	if err != nil {
		return "", err
	}
	return Download(file, dir)
}

// All installs the drivers of several browsers into dir in parallel and
// returns their paths by browser.
func All(ctx context.Context, dir string, browsers ...string) (map[string]string, error) {
	var (
		mu    sync.Mutex
		paths = make(map[string]string, len(browsers))
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, b := range browsers {
		b := b
		g.Go(func() error {
			p, err := Driver(ctx, b, dir)
			if err != nil {
				return fmt.Errorf("error installing %s: %w", b, err)
			}
			mu.Lock()
			paths[b] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func newHash(hashType string) hash.Hash {
	switch strings.ToLower(hashType) {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	default:
		return sha256.New()
	}
}

func downloadFile(file File, dir string) (err error) {
	p := file.Path(dir)
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("error creating %q: %v", p, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing %q: %v", p, closeErr)
		}
	}()

	resp, err := httpClient.Get(file.URL)
	if err != nil {
		return fmt.Errorf("%s: error downloading %q: %v", file.Name, file.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: error downloading %q: %s", file.Name, file.URL, resp.Status)
	}

	if file.Hash == "" {
		if _, err := io.Copy(f, resp.Body); err != nil {
			return fmt.Errorf("%s: error downloading %q: %v", file.Name, file.URL, err)
		}
		return nil
	}
	h := newHash(file.HashType)
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		return fmt.Errorf("%s: error downloading %q: %v", file.Name, file.URL, err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != file.Hash {
		return fmt.Errorf("%s: got %s hash %q, want %q", file.Name, file.HashType, sum, file.Hash)
	}
	return nil
}

func fileSameHash(file File, dir string) bool {
	f, err := os.Open(file.Path(dir))
	if err != nil {
		return false
	}
	defer f.Close()

	h := newHash(file.HashType)
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if sum != file.Hash {
		glog.Warningf("File %q: got hash %q, expect hash %q", file.Name, sum, file.Hash)
		return false
	}
	return true
}

func unzipArchive(file File, dir string) error {
	var unzipCmd []string
	p := file.Path(dir)
	switch {
	case strings.HasSuffix(file.Name, ".zip"):
		unzipCmd = []string{"unzip", "-d", dir, "-o", p}
	case strings.HasSuffix(file.Name, ".tar.gz"), strings.HasSuffix(file.Name, ".tgz"):
		unzipCmd = []string{"tar", "-xzf", p, "-C", dir}
	case strings.HasSuffix(file.Name, ".tar.bz2"):
		unzipCmd = []string{"tar", "-xjf", p, "-C", dir}
	default:
		return nil
	}

	glog.Infof("Unzipping %q", p)
	if out, err := execCommand(unzipCmd[0], unzipCmd[1:]...).CombinedOutput(); err != nil {
		return fmt.Errorf("error unzipping %q: %v: %s", file.Name, err, out)
	}
	return nil
}
