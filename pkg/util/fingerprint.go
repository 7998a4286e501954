package util

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/jpfielding/pixdec.go/pkg/pixel"
)

// Namespace scopes the name-based UUIDs produced by ContentUUID.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/jpfielding/pixdec.go"))

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	sum := md5.Sum(value)
	return hex.EncodeToString(sum[:])
}

// ContentUUID is a version 5 UUID over the buffer geometry and samples.
// Two files that decode to the same pixels share it regardless of format
// or compression.
func ContentUUID(b *pixel.Buffer) string {
	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:], uint32(b.Width))
	binary.BigEndian.PutUint32(hdr[4:], uint32(b.Height))
	binary.BigEndian.PutUint32(hdr[8:], uint32(b.Layout))
	binary.BigEndian.PutUint32(hdr[12:], uint32(b.Depth))
	return uuid.NewSHA1(Namespace, append(hdr[:], b.Samples...)).String()
}
