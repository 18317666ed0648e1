package pkg

import (
	"context"

	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/vulncatalog/vulncatalog/pkg/db"
	"github.com/vulncatalog/vulncatalog/pkg/feed/cwe"
	"github.com/vulncatalog/vulncatalog/pkg/feed/nvd"
	"github.com/vulncatalog/vulncatalog/pkg/importer"
)

func NewApp(version string) *cli.App {
	app := cli.NewApp()
	app.Name = "vulncatalog"
	app.Version = version

	app.Usage = "Vulnerability catalog importer"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "dsn",
			Usage:  "database connection string",
			EnvVar: "VULNCATALOG_DSN",
			Value:  "postgres://localhost/vulncatalog?sslmode=disable",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "import-cve",
			Usage:  "import the yearly CVE feeds",
			Action: importCve,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "first-year",
					Usage: "oldest feed year to import",
					Value: importer.FirstYear,
				},
				cli.StringFlag{
					Name:  "feed-url",
					Usage: "templated CVE feed URL",
					Value: nvd.FeedURL,
				},
			},
		},
		{
			Name:   "import-cwe",
			Usage:  "import the CWE weakness catalog",
			Action: importCwe,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "feed-url",
					Usage: "CWE catalog URL",
					Value: cwe.FeedURL,
				},
			},
		},
	}

	return app
}

func importCve(c *cli.Context) error {
	store, err := db.NewStore(c.GlobalString("dsn"))
	if err != nil {
		return xerrors.Errorf("store initialize error: %w", err)
	}
	defer store.Close()

	imp := importer.New(store,
		importer.WithFirstYear(c.Int("first-year")),
		importer.WithCVEFeedURL(c.String("feed-url")),
	)
	if err := imp.ImportCVE(context.Background()); err != nil {
		return xerrors.Errorf("CVE import error: %w", err)
	}
	return nil
}

func importCwe(c *cli.Context) error {
	store, err := db.NewStore(c.GlobalString("dsn"))
	if err != nil {
		return xerrors.Errorf("store initialize error: %w", err)
	}
	defer store.Close()

	imp := importer.New(store, importer.WithCWEFeedURL(c.String("feed-url")))
	if err := imp.ImportCWE(context.Background()); err != nil {
		return xerrors.Errorf("CWE import error: %w", err)
	}
	return nil
}
