package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// TimestampLayout is the suffix format used for generated and de-duplicated filenames.
const TimestampLayout = "20060102_150405"

// FeedbackPhotosDir holds before/after photos attached to equipment feedback.
const FeedbackPhotosDir = "FeedbackPhotos"

var storageDirs = []string{
	CategoryInspection.Dir(),
	CategoryLogs.Dir(),
	CategoryOther.Dir(),
	CategoryFeedback.Dir(),
	FeedbackPhotosDir,
}

// File is an uploaded file as received from a client.
type File interface {
	Filename() string
	Open() (io.ReadCloser, error)
}

type multipartFile struct {
	fh *multipart.FileHeader
}

// FromMultipart adapts a multipart form file. It returns nil for a nil header.
func FromMultipart(fh *multipart.FileHeader) File {
	if fh == nil {
		return nil
	}
	return multipartFile{fh: fh}
}

func (m multipartFile) Filename() string             { return m.fh.Filename }
func (m multipartFile) Open() (io.ReadCloser, error) { return m.fh.Open() }

type memoryFile struct {
	name string
	data []byte
}

// FromBytes wraps in-memory content as a File.
func FromBytes(name string, data []byte) File {
	return memoryFile{name: name, data: data}
}

func (m memoryFile) Filename() string { return m.name }
func (m memoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

// Storage lays out uploaded files on local disk under a single root.
type Storage struct {
	root string
	now  func() time.Time
}

// NewStorage creates a Storage rooted at root.
func NewStorage(root string) *Storage {
	return &Storage{root: root, now: time.Now}
}

// SetClock overrides the time source used for generated names.
func (s *Storage) SetClock(now func() time.Time) {
	s.now = now
}

// Init creates every category directory.
func (s *Storage) Init() error {
	for _, d := range storageDirs {
		if err := os.MkdirAll(filepath.Join(s.root, d), 0o755); err != nil {
			return fmt.Errorf("failed to create upload folder %s: %w", d, err)
		}
	}
	return nil
}

// Root returns the storage root directory.
func (s *Storage) Root() string { return s.root }

// Dir returns the directory files of the category are written to.
func (s *Storage) Dir(c Category) string {
	return filepath.Join(s.root, c.Dir())
}

// Timestamp formats the current time with TimestampLayout.
func (s *Storage) Timestamp() string {
	return s.now().Format(TimestampLayout)
}

// ResolvePath returns a destination for filename inside the category directory.
// When the name is taken a "_YYYYMMDD_HHMMSS" suffix is inserted before the extension.
// Two writers resolving the same name within one second can still collide.
func (s *Storage) ResolvePath(c Category, filename string) (string, string) {
	dir := s.Dir(c)
	dest := filepath.Join(dir, filename)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(filename)
		base := strings.TrimSuffix(filename, ext)
		filename = fmt.Sprintf("%s_%s%s", base, s.Timestamp(), ext)
		dest = filepath.Join(dir, filename)
	}
	return dest, filename
}

// Save writes r to a collision-free path in the category directory and returns
// the written path and stored filename.
func (s *Storage) Save(c Category, filename string, r io.Reader) (string, string, error) {
	if err := os.MkdirAll(s.Dir(c), 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", s.Dir(c), err)
	}
	dest, name := s.ResolvePath(c, filename)
	if err := writeFile(dest, r); err != nil {
		return "", "", err
	}
	return dest, name, nil
}

// SaveFeedbackText writes a feedback text blob to the Feedback directory under
// a generated name and returns that name.
func (s *Storage) SaveFeedbackText(caseKey, room, text string) (string, error) {
	name := fmt.Sprintf("feedback_%s_%s_%s.txt", slug.Make(caseKey), slug.Make(room), s.Timestamp())
	dir := s.Dir(CategoryFeedback)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := writeFile(filepath.Join(dir, name), strings.NewReader(text)); err != nil {
		return "", err
	}
	return name, nil
}

// SaveFeedbackPhoto stores a photo for equipment feedback as
// "<equipmentID>_<tag>_<timestamp>_<sanitized name>" and returns the path and name.
func (s *Storage) SaveFeedbackPhoto(equipmentID int64, tag, ts string, f File) (string, string, error) {
	clean := SanitizeFilename(f.Filename())
	if clean == "" {
		clean = "photo"
	}
	name := fmt.Sprintf("%d_%s_%s_%s", equipmentID, tag, ts, clean)
	dir := filepath.Join(s.root, FeedbackPhotosDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	src, err := f.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open photo %q: %w", f.Filename(), err)
	}
	defer src.Close()

	dest := filepath.Join(dir, name)
	if err := writeFile(dest, src); err != nil {
		return "", "", err
	}
	return dest, name, nil
}

// Locate returns the path of filename in the first category directory that holds it.
func (s *Storage) Locate(filename string, cats ...Category) (string, Category, bool) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", "", false
	}
	for _, c := range cats {
		p := filepath.Join(s.Dir(c), name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, c, true
		}
	}
	return "", "", false
}

// Remove deletes path, ignoring a file that is already gone.
func (s *Storage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Wipe deletes every stored file while keeping the directory layout.
func (s *Storage) Wipe() error {
	var errs []error
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if rmErr := os.Remove(p); rmErr != nil {
			errs = append(errs, rmErr)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func writeFile(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	return nil
}
