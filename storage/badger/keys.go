package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/ontolite/core"
)

// Key prefixes for different data types
const (
	documentPrefix  = "docrec"
	versionPrefix   = "verrec"
	latestPrefix    = "verlat"
	verByDocPrefix  = "verdoc"
	spanPrefix      = "spnrec"
	conceptPrefix   = "conrec"
	relationPrefix  = "relrec"
	mentionPrefix   = "menrec"
	spanByVerPrefix = "spnver"
	conByVerPrefix  = "conver"
	relByVerPrefix  = "relver"
	menByVerPrefix  = "menver"
)

// makeRecordKey generates a primary key for a record by ID.
func makeRecordKey(prefix string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", prefix, id))
}

// makeLatestKey generates the latest-version pointer key for a document.
func makeLatestKey(documentID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", latestPrefix, documentID))
}

// makeCompositeKey generates a composite index key.
// Format: prefix:ownerID:memberID, both BigEndian so lexicographic
// iteration order matches numeric order.
func makeCompositeKey(prefix string, owner, member core.ID) []byte {
	p := []byte(prefix + ":")
	buf := make([]byte, len(p)+16)
	offset := copy(buf, p)
	binary.BigEndian.PutUint64(buf[offset:], uint64(owner))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(member))
	return buf
}

// makePartialCompositeKey generates the iteration prefix for one owner.
func makePartialCompositeKey(prefix string, owner core.ID) []byte {
	p := []byte(prefix + ":")
	buf := make([]byte, len(p)+8)
	offset := copy(buf, p)
	binary.BigEndian.PutUint64(buf[offset:], uint64(owner))
	return buf
}

// memberIDFromCompositeKey extracts the trailing member ID from a composite key.
func memberIDFromCompositeKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
