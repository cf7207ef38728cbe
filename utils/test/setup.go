package test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/io"
	"github.com/alpacahq/chunkstore/utils/log"
)

// Day0 is 2019-03-04T00:00:00Z, the base day for fixtures.
var Day0 = time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)

func checkfail(err error, msg string) {
	if err != nil {
		log.Error("Message: %v - Error: %v", msg, err)
		os.Exit(1)
	}
}

// At returns Day0 plus the given day and second offsets.
func At(days int, secs int64) time.Time {
	return Day0.AddDate(0, 0, days).Add(time.Duration(secs) * time.Second)
}

// Payload returns a printable, compressible payload of n bytes tagged
// with id.
func Payload(id string, n int) []byte {
	line := []byte(fmt.Sprintf("METAR %s 041353Z 17008KT 10SM FEW080 06/M08 A3002\n", id))
	out := bytes.Repeat(line, n/len(line)+1)
	return out[:n]
}

// MakeProductDir creates root/rel and returns its path.
func MakeProductDir(root, rel string) string {
	const allowAllPerm = 0o777
	dir := filepath.Join(root, rel)
	err := os.MkdirAll(dir, allowAllPerm)
	checkfail(err, "MakeProductDir: Unable to create directory: "+dir)
	return dir
}

// MakeDayFiles writes a day-file pair holding nChunks one-byte chunks,
// one per minute from the start of the day, without going through the
// store.  Used to build catalog fixtures.
func MakeDayFiles(dir string, day time.Time, nChunks int) {
	start := utils.DayStart(day.Unix())
	h := io.NewHeader(start, 0, "fixture")
	x := &io.IndexFile{Header: h}
	data := make([]byte, 0, nChunks)
	for i := 0; i < nChunks; i++ {
		vt := start + int64(i)*utils.SecsInMin
		x.Refs = append(x.Refs, io.ChunkRef{ValidTime: vt, ExpireTime: vt, Offset: uint32(i), Len: 1})
		x.Aux = append(x.Aux, io.AuxRef{WriteTime: vt})
		h.MinutePosn[utils.MinuteOfDay(vt)] = int32(i)
		data = append(data, byte('a'+i%26))
	}
	h.NBytesData = int64(nChunks)

	var buf bytes.Buffer
	checkfail(io.WriteIndex(&buf, x), "MakeDayFiles: encode index")
	name := utils.DayName(start)
	checkfail(os.WriteFile(filepath.Join(dir, name+".indx"), buf.Bytes(), 0o644), "MakeDayFiles: write index")
	checkfail(os.WriteFile(filepath.Join(dir, name+".data"), data, 0o644), "MakeDayFiles: write data")
}
