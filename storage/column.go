// Copyright (C) 2024 coldb Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/coldb-project/coldb/bptree"
	"github.com/coldb-project/coldb/dberr"
)

// Column is a memory-mapped, fixed-width i32 column file plus whatever
// index structures its IndexType requires. It implements vector.ColumnView
// (Data/Name) structurally, without this package importing vector.
type Column struct {
	name      string
	indexType IndexType

	fd       int
	data     []int32 // mmap'd slice, length == capacity
	capacity int

	// Sorter is a valid argsort permutation of data[0:nRows) for the
	// unclustered variants; nil for IndexNone and the clustered variants
	// (whose physical order already is the sorted order).
	Sorter []int
	// Tree is non-nil for the two B+-tree variants.
	Tree *bptree.Tree
}

// Name returns the column's name.
func (c *Column) Name() string { return c.name }

// Data returns the full-capacity backing slice; callers must restrict
// themselves to the table's logical [0, n_rows) prefix.
func (c *Column) Data() []int32 { return c.data }

// IndexType reports the column's current index variant.
func (c *Column) IndexType() IndexType { return c.indexType }

// SetIndexType is used by the column index manager after Init/Free.
func (c *Column) SetIndexType(t IndexType) { c.indexType = t }

// Capacity returns the column's physical row capacity.
func (c *Column) Capacity() int { return c.capacity }

func columnPath(dir, table, column string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s", table, column))
}

// mmapColumnFile opens (creating if absent) the column file, truncates it
// to capacity*4 bytes, and maps it MAP_SHARED read/write. Grounded on
// original_source/src/io.c:mmap_column_file.
func mmapColumnFile(dir, table, name string, capacity int) (*Column, error) {
	path := columnPath(dir, table, name)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		return nil, dberr.New(dberr.AllocFailed, "open column file %s: %v", path, err)
	}
	size := capacity * 4
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, dberr.New(dberr.AllocFailed, "truncate column file %s: %v", path, err)
	}
	data, err := mapColumnData(fd, size)
	if err != nil {
		unix.Close(fd)
		return nil, dberr.New(dberr.AllocFailed, "mmap column file %s: %v", path, err)
	}
	return &Column{name: name, fd: fd, data: data, capacity: capacity}, nil
}

// mapColumnData mmaps the first size bytes of fd as a []int32 of size/4
// elements, MAP_SHARED read/write.
func mapColumnData(fd int, size int) ([]int32, error) {
	if size == 0 {
		return nil, nil
	}
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	n := size / 4
	return unsafe.Slice((*int32)(unsafe.Pointer(&buf[0])), n), nil
}

// unmapColumnData reverses mapColumnData by recovering the original byte
// slice header from the int32 view.
func unmapColumnData(data []int32) error {
	if len(data) == 0 {
		return nil
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
	return unix.Munmap(buf)
}

// remap grows or shrinks a column file to newCapacity, truncating
// the backing file then remapping (never assuming the mapping stays put).
// Grounded on original_source/src/io.c:mremap_column_file, here implemented
// as unmap+remap since golang.org/x/sys/unix exposes no portable mremap.
func (c *Column) remap(newCapacity int) error {
	if newCapacity == c.capacity {
		return nil
	}
	if err := unix.Ftruncate(c.fd, int64(newCapacity*4)); err != nil {
		return dberr.New(dberr.ExpandFailed, "truncate column %s: %v", c.name, err)
	}
	if err := unmapColumnData(c.data); err != nil {
		return dberr.New(dberr.ExpandFailed, "unmap column %s: %v", c.name, err)
	}
	data, err := mapColumnData(c.fd, newCapacity*4)
	if err != nil {
		return dberr.New(dberr.ExpandFailed, "remap column %s: %v", c.name, err)
	}
	c.data = data
	c.capacity = newCapacity
	return nil
}

// close truncates the file to capacity, msyncs, munmaps and closes the fd.
// Grounded on original_source/src/io.c:munmap_column_file.
func (c *Column) close() error {
	size := c.capacity * 4
	if err := unix.Ftruncate(c.fd, int64(size)); err != nil {
		return dberr.New(dberr.InternalError, "truncate-on-close column %s: %v", c.name, err)
	}
	if len(c.data) != 0 {
		buf := unsafe.Slice((*byte)(unsafe.Pointer(&c.data[0])), len(c.data)*4)
		if err := unix.Msync(buf, unix.MS_SYNC); err != nil {
			return dberr.New(dberr.InternalError, "msync column %s: %v", c.name, err)
		}
	}
	if err := unmapColumnData(c.data); err != nil {
		return dberr.New(dberr.InternalError, "munmap column %s: %v", c.name, err)
	}
	return unix.Close(c.fd)
}

// removeColumnFile deletes the persisted file for a column. Nothing in the
// package calls it; CreateDatabase clears a replaced database's directory
// itself.
func removeColumnFile(dir, table, name string) error {
	return os.Remove(columnPath(dir, table, name))
}
