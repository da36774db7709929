// Copyright Red Hat, Inc.
// SPDX-License-Identifier: GPL-2.0-only

package identity

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/ZuhairORZaki/subscription-manager/fileutil"
)

// DefaultProductDir is where installed product certificates live.
const DefaultProductDir = "/etc/pki/product"

// Product certificates describe products in the extension tree
// 1.3.6.1.4.1.2312.9.1.<product-id>.<field>.
var productOIDPrefix = []int{1, 3, 6, 1, 4, 1, 2312, 9, 1}

const (
	fieldName    = 1
	fieldVersion = 2
	fieldArch    = 3
)

// InstalledProduct is one product record read from a certificate.
type InstalledProduct struct {
	ID      string `json:"productId"`
	Name    string `json:"productName"`
	Version string `json:"version"`
	Arch    string `json:"arch"`
}

// ScanProducts parses every *.pem in dir into installed product
// records. Unreadable or unparseable certificates are skipped with a
// warning, a missing directory yields no products.
func ScanProducts(dir string) ([]InstalledProduct, error) {
	if dir == "" {
		dir = DefaultProductDir
	}
	paths, err := fileutil.FilesWithExt(dir, ".pem")
	if err != nil {
		return nil, err
	}

	var products []InstalledProduct
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("cannot read product certificate", "path", path, "error", err)
			continue
		}
		block, _ := pem.Decode(data)
		if block == nil || block.Type != "CERTIFICATE" {
			log.Warn("product certificate is not PEM encoded", "path", path)
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			log.Warn("cannot parse product certificate", "path", path, "error", err)
			continue
		}
		products = append(products, extractProducts(cert)...)
	}
	return products, nil
}

// extractProducts walks the certificate extensions. One certificate
// can carry several products, so records are grouped by product id in
// the order the ids first appear.
func extractProducts(cert *x509.Certificate) []InstalledProduct {
	byID := make(map[int]*InstalledProduct)
	var order []int

	for _, ext := range cert.Extensions {
		id := ext.Id
		if len(id) != len(productOIDPrefix)+2 || !oidHasPrefix(id, productOIDPrefix) {
			continue
		}

		productID := id[len(productOIDPrefix)]
		product, ok := byID[productID]
		if !ok {
			product = &InstalledProduct{ID: strconv.Itoa(productID)}
			byID[productID] = product
			order = append(order, productID)
		}

		switch id[len(id)-1] {
		case fieldName:
			product.Name = derString(ext.Value)
		case fieldVersion:
			product.Version = derString(ext.Value)
		case fieldArch:
			product.Arch = derString(ext.Value)
		}
	}

	products := make([]InstalledProduct, 0, len(order))
	for _, productID := range order {
		products = append(products, *byID[productID])
	}
	return products
}

func oidHasPrefix(id asn1.ObjectIdentifier, prefix []int) bool {
	for i, arc := range prefix {
		if id[i] != arc {
			return false
		}
	}
	return true
}

// derString decodes a DER string extension value. Older certificates
// carry values that are not well formed DER, those fall back to the
// printable bytes.
func derString(data []byte) string {
	var s string
	if _, err := asn1.Unmarshal(data, &s); err == nil {
		return s
	}
	return strings.TrimFunc(string(data), func(r rune) bool {
		return !unicode.IsPrint(r)
	})
}
