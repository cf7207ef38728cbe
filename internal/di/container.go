package di

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alpacahq/chunkstore/catalog"
	"github.com/alpacahq/chunkstore/executor"
	"github.com/alpacahq/chunkstore/utils"
	"github.com/alpacahq/chunkstore/utils/log"
)

// Container builds the store and its collaborators from one config,
// each at most once.
type Container struct {
	config     *utils.StoreConfig
	absRootDir string
	store      *executor.Store
}

func NewContainer(cfg *utils.StoreConfig) *Container {
	if cfg == nil {
		cfg = utils.DefaultConfig()
	}
	return &Container{config: cfg}
}

// LoadContainer reads the YAML config at path, or uses the defaults
// when path is empty.  A non-empty rootDir overrides the configured root.
func LoadContainer(path, rootDir string) (*Container, error) {
	cfg := utils.DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file error: %w", err)
		}
		if cfg, err = utils.ParseConfig(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file error: %w", err)
		}
	}
	if rootDir != "" {
		cfg.RootDirectory = rootDir
	}
	log.SetLevel(cfg.LogLevel)
	return NewContainer(cfg), nil
}

func (c *Container) GetConfig() *utils.StoreConfig {
	return c.config
}

func (c *Container) GetAbsRootDir() string {
	if c.absRootDir != "" {
		return c.absRootDir
	}
	relRootDir := utils.NewDataDir(c.config.RootDirectory).Root

	// rootDir is the absolute path to the data directory.
	// e.g. rootDir = "/project/chunkstore/data"
	rootDir, err := filepath.Abs(filepath.Clean(relRootDir))
	if err != nil {
		log.Error("Cannot take absolute path of root directory %s", err.Error())
		rootDir = relRootDir
	} else {
		log.Debug("Root Directory: %s", rootDir)
	}
	c.absRootDir = rootDir
	return c.absRootDir
}

func (c *Container) GetStore() (*executor.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg := *c.config
	cfg.RootDirectory = c.GetAbsRootDir()
	s, err := executor.NewStore(&cfg)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	c.store = s
	return c.store, nil
}

// GetProductDirs lists the product directories under the root whose
// root-relative path matches pattern.
func (c *Container) GetProductDirs(pattern string) ([]string, error) {
	return catalog.FindProducts(c.GetAbsRootDir(), pattern)
}

// GetDirectory scans the day files of one product.
func (c *Container) GetDirectory(product string) (*catalog.Directory, error) {
	return catalog.NewDirectory(utils.NewDataDir(c.GetAbsRootDir()).Resolve(product))
}
