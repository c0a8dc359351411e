package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/novelcrawl/piaotian/internal/config"
	"github.com/novelcrawl/piaotian/internal/downloader"
	"github.com/novelcrawl/piaotian/internal/logging"
	"github.com/novelcrawl/piaotian/internal/mirror"
	"github.com/novelcrawl/piaotian/internal/models"
	"github.com/novelcrawl/piaotian/internal/source/piaotian"
	"github.com/novelcrawl/piaotian/pkg/utils"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "piaotian",
		Usage:   "Search and download novels from piaotian and its mirrors.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"C"},
				Usage:   "Path to a YAML config file.",
				EnvVars: []string{"PIAOTIAN_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "mirror",
				Aliases: []string{"m"},
				Usage:   "Base URL of the mirror to use (e.g., https://www.ptwxz.com/).",
			},
			&cli.BoolFlag{
				Name:  "auto-mirror",
				Usage: "Probe the known mirrors and use the fastest one.",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging.",
			},
			&cli.StringFlag{
				Name:    "cookies",
				Aliases: []string{"c"},
				Usage:   "Path to cookies file (supports Cookie-Editor and J2Team formats).",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search novels by title.",
				ArgsUsage: "<query>",
				Action:    runSearchAction,
			},
			{
				Name:      "info",
				Usage:     "Show metadata and the chapter list of a novel.",
				ArgsUsage: "<novel-url>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the novel as JSON.",
					},
				},
				Action: runInfoAction,
			},
			{
				Name:      "chapter",
				Usage:     "Print the text of one chapter.",
				ArgsUsage: "<chapter-url>",
				Action:    runChapterAction,
			},
			{
				Name:      "download",
				Usage:     "Download a novel into a text file.",
				ArgsUsage: "<novel-url>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Base directory where the novel folder will be created.",
					},
					&cli.StringFlag{
						Name:    "range",
						Aliases: []string{"r"},
						Usage:   "Chapters to download (e.g., 5-12, 40-, 7).",
					},
					&cli.BoolFlag{
						Name:  "skip-broken",
						Usage: "Keep going when a chapter fails and write a placeholder.",
					},
				},
				Action: runDownloadAction,
			},
			{
				Name:   "mirrors",
				Usage:  "Probe the known mirrors and print their latency.",
				Action: runMirrorsAction,
			},
			{
				Name:      "init-config",
				Usage:     "Write the default configuration to a YAML file.",
				ArgsUsage: "[path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file.",
					},
				},
				Action: runInitConfigAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// session is the configuration and logger shared by every command
type session struct {
	cfg *config.Config
	log *logrus.Logger
}

func loadSession(ctx *cli.Context) (*session, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("mirror") {
		cfg.Mirror = ctx.String("mirror")
	}
	if ctx.Bool("debug") {
		cfg.Debug = true
	}
	if cookiesPath := ctx.String("cookies"); cookiesPath != "" {
		if !filepath.IsAbs(cookiesPath) {
			if wd, err := os.Getwd(); err == nil {
				cookiesPath = filepath.Join(wd, cookiesPath)
			}
		}
		if !utils.FileExists(cookiesPath) {
			return nil, fmt.Errorf("cookies file not found at %s", cookiesPath)
		}
		cfg.CookieFile = cookiesPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &session{cfg: cfg, log: logging.New(cfg.Debug, nil)}, nil
}

func (s *session) mirrors() []string {
	return lo.Ternary(len(s.cfg.Mirrors) > 0, s.cfg.Mirrors, piaotian.BaseURLs)
}

// home picks the mirror: explicit choice first, then the probe, then the first known one
func (s *session) home(auto bool) (string, error) {
	if s.cfg.Mirror != "" {
		return s.cfg.Mirror, nil
	}
	if !auto {
		return s.mirrors()[0], nil
	}

	results := mirror.Probe(s.mirrors(), s.cfg.Transport.Timeout, s.log)
	best, err := mirror.Fastest(results)
	if err != nil {
		return "", err
	}
	s.log.WithField("mirror", best).Info("using fastest mirror")
	return best, nil
}

func newCrawler(ctx *cli.Context) (*piaotian.Crawler, *session, error) {
	s, err := loadSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	home, err := s.home(ctx.Bool("auto-mirror"))
	if err != nil {
		return nil, nil, err
	}
	crawler, err := piaotian.NewFromConfig(s.cfg, home, s.log)
	if err != nil {
		return nil, nil, err
	}
	return crawler, s, nil
}

func singleArg(ctx *cli.Context, what string) (string, error) {
	if ctx.Args().Len() != 1 {
		return "", cli.Exit(what+" is required", 1)
	}
	arg := strings.TrimSpace(ctx.Args().First())
	if arg == "" {
		return "", cli.Exit(what+" cannot be empty", 1)
	}
	return arg, nil
}

func runSearchAction(ctx *cli.Context) error {
	query := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
	if query == "" {
		return cli.Exit("search query is required", 1)
	}

	crawler, _, err := newCrawler(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	results, err := crawler.Search(query)
	if err != nil {
		return cli.Exit(fmt.Sprintf("search failed: %v", err), 1)
	}
	if len(results) == 0 {
		fmt.Println("[-] No results")
		return nil
	}
	for i, r := range results {
		fmt.Printf("[%d] %s (%s)\n    %s\n", i+1, r.Title, r.Info, r.URL)
	}
	return nil
}

func runInfoAction(ctx *cli.Context) error {
	novelURL, err := singleArg(ctx, "novel URL")
	if err != nil {
		return err
	}

	crawler, _, err := newCrawler(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	novel, err := crawler.ReadNovelInfo(novelURL)
	if err != nil {
		return cli.Exit(fmt.Sprintf("unable to read novel: %v", err), 1)
	}

	if ctx.Bool("json") {
		data, err := json.MarshalIndent(novel, "", "  ")
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Println(string(data))
		return nil
	}

	printNovel(novel)
	return nil
}

func printNovel(novel *models.Novel) {
	fmt.Printf("[*] Title: %s\n", novel.Title)
	fmt.Printf("[*] Author: %s\n", novel.Author)
	fmt.Printf("[*] Cover: %s\n", novel.CoverURL)
	fmt.Printf("[*] %d chapters in %d volumes\n", len(novel.Chapters), len(novel.Volumes))
	for _, v := range novel.Volumes {
		chapters := novel.ChaptersOf(v.ID)
		first, last := chapters[0], chapters[len(chapters)-1]
		fmt.Printf("    Volume %d: %d. %s ... %d. %s\n", v.ID, first.ID, first.Title, last.ID, last.Title)
	}
}

func runChapterAction(ctx *cli.Context) error {
	chapterURL, err := singleArg(ctx, "chapter URL")
	if err != nil {
		return err
	}

	crawler, _, err := newCrawler(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	text, err := crawler.DownloadChapterBody(models.Chapter{ID: 1, Volume: 1, URL: chapterURL})
	if err != nil {
		return cli.Exit(fmt.Sprintf("unable to download chapter: %v", err), 1)
	}
	fmt.Println(text)
	return nil
}

func runDownloadAction(ctx *cli.Context) error {
	novelURL, err := singleArg(ctx, "novel URL")
	if err != nil {
		return err
	}

	crawler, s, err := newCrawler(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	outputDir := lo.Ternary(ctx.String("output") != "", ctx.String("output"), s.cfg.Output)
	if !filepath.IsAbs(outputDir) {
		if wd, err := os.Getwd(); err == nil {
			outputDir = filepath.Join(wd, outputDir)
		}
	}

	dl, err := downloader.NewDownloader(crawler, downloader.Options{
		BooksDir:   outputDir,
		Range:      ctx.String("range"),
		SkipBroken: ctx.Bool("skip-broken"),
		Progress:   os.Stdout,
		Logger:     s.log,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("unable to create downloader: %v", err), 1)
	}

	res, err := dl.Run(novelURL)
	if err != nil {
		return cli.Exit(fmt.Sprintf("download failed: %v", err), 1)
	}

	fmt.Printf("[*] Done: %s (%d chapters", res.TextPath, res.Chapters)
	if res.Broken > 0 {
		fmt.Printf(", %d broken", res.Broken)
	}
	fmt.Println(")")
	return nil
}

func runMirrorsAction(ctx *cli.Context) error {
	s, err := loadSession(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	results := mirror.Probe(s.mirrors(), s.cfg.Transport.Timeout, s.log)
	for _, r := range results {
		if r.Healthy() {
			fmt.Printf("[+] %s %s\n", r.URL, r.Latency.Round(time.Millisecond))
		} else {
			fmt.Printf("[-] %s %v\n", r.URL, r.Err)
		}
	}
	if _, err := mirror.Fastest(results); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func runInitConfigAction(ctx *cli.Context) error {
	path := lo.Ternary(ctx.Args().Len() > 0, ctx.Args().First(), "piaotian.yaml")
	if utils.FileExists(path) && !ctx.Bool("force") {
		return cli.Exit(fmt.Sprintf("%s already exists (use --force to overwrite)", path), 1)
	}

	cfg := config.Default()
	cfg.Mirrors = piaotian.BaseURLs
	if err := config.SaveYAML(cfg, path); err != nil {
		return cli.Exit(fmt.Sprintf("unable to write config: %v", err), 1)
	}
	fmt.Printf("[*] Wrote %s\n", path)
	return nil
}
