package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/stretchr/testify/assert"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/utils/test"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

var _ = Suite(&CatalogSuite{})

type CatalogSuite struct {
	Rootdir    string
	ProductDir string
}

func (s *CatalogSuite) SetUpTest(c *C) {
	s.Rootdir = c.MkDir()
	s.ProductDir = test.MakeProductDir(s.Rootdir, "spdb/metar")
	test.MakeDayFiles(s.ProductDir, test.At(0, 0), 0)
	test.MakeDayFiles(s.ProductDir, test.At(1, 0), 3)
	test.MakeDayFiles(s.ProductDir, test.At(3, 0), 2)
	test.MakeDayFiles(s.ProductDir, test.At(4, 0), 0)
}

func (s *CatalogSuite) TestListDays(c *C) {
	d, err := catalog.NewDirectory(s.ProductDir)
	c.Assert(err, IsNil)
	days := d.Days()
	c.Assert(days, HasLen, 4)
	c.Assert(days[0].Name, Equals, "20190304")
	c.Assert(days[3].Name, Equals, "20190308")
	c.Assert(days[1].HasChunks(), Equals, true)
	c.Assert(days[0].HasChunks(), Equals, false)
	c.Assert(days[1].DataSize, Equals, int64(3))
}

func (s *CatalogSuite) TestFirstLastSkipEmpty(c *C) {
	d, err := catalog.NewDirectory(s.ProductDir)
	c.Assert(err, IsNil)

	first, ok := d.First()
	c.Assert(ok, Equals, true)
	c.Assert(first.Start, Equals, test.At(1, 0).Unix())

	last, ok := d.Last()
	c.Assert(ok, Equals, true)
	c.Assert(last.Start, Equals, test.At(3, 0).Unix())
}

func (s *CatalogSuite) TestDaysBetween(c *C) {
	d, err := catalog.NewDirectory(s.ProductDir)
	c.Assert(err, IsNil)
	days := d.DaysBetween(test.At(1, 3600).Unix(), test.At(3, 0).Unix())
	c.Assert(days, HasLen, 2)
	c.Assert(days[0].Name, Equals, "20190305")
	c.Assert(days[1].Name, Equals, "20190307")

	c.Assert(d.Has(test.At(3, 500).Unix()), Equals, true)
	c.Assert(d.Has(test.At(2, 0).Unix()), Equals, false)
}

func (s *CatalogSuite) TestIgnoresOrphansAndJunk(c *C) {
	c.Assert(os.Remove(filepath.Join(s.ProductDir, "20190304.data")), IsNil)
	c.Assert(os.WriteFile(filepath.Join(s.ProductDir, "notes.indx"), nil, 0o644), IsNil)
	c.Assert(os.WriteFile(filepath.Join(s.ProductDir, "_lock"), nil, 0o644), IsNil)

	d, err := catalog.NewDirectory(s.ProductDir)
	c.Assert(err, IsNil)
	c.Assert(d.Days(), HasLen, 3)
}

func (s *CatalogSuite) TestReload(c *C) {
	d, err := catalog.NewDirectory(s.ProductDir)
	c.Assert(err, IsNil)
	test.MakeDayFiles(s.ProductDir, test.At(9, 0), 1)
	c.Assert(d.Days(), HasLen, 4)
	c.Assert(d.Reload(), IsNil)
	c.Assert(d.Days(), HasLen, 5)
	last, _ := d.Last()
	c.Assert(last.Name, Equals, "20190313")
}

func (s *CatalogSuite) TestFindProducts(c *C) {
	taf := test.MakeProductDir(s.Rootdir, "spdb/taf")
	test.MakeDayFiles(taf, test.At(0, 0), 1)
	test.MakeProductDir(s.Rootdir, "spdb/empty")
	deep := test.MakeProductDir(s.Rootdir, "raw/ltg/strikes")
	test.MakeDayFiles(deep, test.At(0, 0), 1)

	all, err := catalog.FindProducts(s.Rootdir, "")
	c.Assert(err, IsNil)
	c.Assert(all, DeepEquals, []string{deep, s.ProductDir, taf})

	spdb, err := catalog.FindProducts(s.Rootdir, "spdb/*")
	c.Assert(err, IsNil)
	c.Assert(spdb, DeepEquals, []string{s.ProductDir, taf})

	deepOnly, err := catalog.FindProducts(s.Rootdir, "raw/**")
	c.Assert(err, IsNil)
	c.Assert(deepOnly, DeepEquals, []string{deep})

	_, err = catalog.FindProducts(s.Rootdir, "spdb/[")
	c.Assert(err, NotNil)
}

func TestNewDirectoryMissing(t *testing.T) {
	_, err := catalog.NewDirectory(filepath.Join(t.TempDir(), "absent"))
	var nf catalog.NotFoundError
	assert.True(t, errors.As(err, &nf))
}
