// Package usbid looks up vendor and product names in the usb.ids database
// shipped by usbutils and hwdata.
//
//	db := usbid.New()
//	db.Load()
//	fmt.Println(db.Describe(0x2E8A, 0x000A)) // Raspberry Pi Pico
//
// Load searches [DefaultPaths]; LoadFrom parses any reader in the usb.ids
// format. Lookups on a database that failed to load return empty strings,
// and Describe falls back to the hexadecimal IDs.
//
// All methods are safe for concurrent use.
package usbid
