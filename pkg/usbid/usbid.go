package usbid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations of the database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Database caches vendor and product names.
type Database struct {
	vendors  map[uint16]string
	products map[uint32]string // VID<<16 | PID
	loaded   bool
	paths    []string
	mu       sync.RWMutex
}

// New creates a database that searches DefaultPaths.
func New() *Database {
	return NewWithPaths(DefaultPaths)
}

// NewWithPaths creates a database that searches paths in order.
func NewWithPaths(paths []string) *Database {
	return &Database{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
		paths:    paths,
	}
}

// Load parses the first database file found. Only the first call searches;
// it reports whether a file was found.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return len(db.vendors) > 0
	}
	db.loaded = true

	for _, path := range db.paths {
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		err = db.parse(file)
		file.Close()
		if err == nil {
			return true
		}
	}
	return false
}

// LoadFrom parses a database in usb.ids format from r, adding to any names
// already loaded.
func (db *Database) LoadFrom(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.loaded = true
	return db.parse(r)
}

// parse reads vendor lines ("vvvv  name") and the tab-indented product
// lines ("\tpppp  name") that follow them. Class, language and other
// sections end the vendor list.
func (db *Database) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var vid uint16
	inVendor := false

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		if line[0] == '\t' {
			if !inVendor || strings.HasPrefix(line, "\t\t") {
				continue
			}
			if pid, name, ok := splitEntry(line[1:]); ok {
				db.products[uint32(vid)<<16|uint32(pid)] = name
			}
			continue
		}

		vendor, name, ok := splitEntry(line)
		inVendor = ok
		if ok {
			vid = vendor
			db.vendors[vid] = name
		}
	}
	return scanner.Err()
}

// splitEntry splits "xxxx  name" into its hexadecimal ID and name.
func splitEntry(s string) (uint16, string, bool) {
	id, name, ok := strings.Cut(s, " ")
	if !ok || len(id) != 4 {
		return 0, "", false
	}
	n, err := strconv.ParseUint(id, 16, 16)
	if err != nil {
		return 0, "", false
	}
	name = strings.TrimSpace(name)
	return uint16(n), name, name != ""
}

// LookupVendor returns the vendor name, or "" if unknown.
func (db *Database) LookupVendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// LookupProduct returns the product name, or "" if unknown.
func (db *Database) LookupProduct(vid, pid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.products[uint32(vid)<<16|uint32(pid)]
}

// Describe returns "Vendor Product", using hexadecimal IDs for the parts
// that are not in the database.
func (db *Database) Describe(vid, pid uint16) string {
	vendor := db.LookupVendor(vid)
	if vendor == "" {
		vendor = fmt.Sprintf("%04x", vid)
	}
	product := db.LookupProduct(vid, pid)
	if product == "" {
		product = fmt.Sprintf("%04x", pid)
	}
	return vendor + " " + product
}

// IsLoaded reports whether a load has been attempted.
func (db *Database) IsLoaded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loaded
}

// VendorCount returns the number of vendors loaded.
func (db *Database) VendorCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors)
}

// ProductCount returns the number of products loaded.
func (db *Database) ProductCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.products)
}
