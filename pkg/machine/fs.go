// Copyright 2026 The Kestrel Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package machine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a program image does not exist.
var ErrNotFound = errors.New("no such file")

// File is an open program image.
type File interface {
	io.Reader
	io.Closer

	// Size returns the image size in bytes.
	Size() int64
}

// FileSystem resolves program image paths.
type FileSystem interface {
	OpenFile(name string) (File, error)
}

// HostFS serves images from a directory on the host, the moral equivalent of
// the FAT partition on the boot medium.
type HostFS struct {
	// Root is the directory images are resolved under.
	Root string
}

type hostFile struct {
	*os.File
	size int64
}

func (f *hostFile) Size() int64 {
	return f.size
}

// OpenFile implements FileSystem.OpenFile. name is interpreted relative to
// Root and may not escape it.
func (h *HostFS) OpenFile(name string) (File, error) {
	clean := path.Clean("/" + strings.TrimPrefix(name, "/"))
	full := filepath.Join(h.Root, filepath.FromSlash(clean))
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return &hostFile{File: f, size: st.Size()}, nil
}
