package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prereqgraph/prereqgraph/internal/utils"
	"github.com/prereqgraph/prereqgraph/pkg/catalog"
	"github.com/prereqgraph/prereqgraph/pkg/storage"
	"github.com/prereqgraph/prereqgraph/pkg/whttp"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download course descriptions into the local cache",
	Long: `Downloads the description of every listed course from collegescheduler and
stores it in the local database. Courses are listed either from a JSON file
(--raw) or from the subject listing endpoint (--subjects). Courses already in
the cache are skipped unless --refresh is given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rawPath, _ := cmd.Flags().GetString("raw")
		subjects, _ := cmd.Flags().GetString("subjects")
		refresh, _ := cmd.Flags().GetBool("refresh")
		outPath, _ := cmd.Flags().GetString("out")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		proxy, _ := rootCmd.PersistentFlags().GetString("proxy")

		if rawPath == "" && subjects == "" {
			return errors.New("one of --raw or --subjects is required")
		}
		if viper.GetString("collegescheduler.cookie") == "" {
			utils.Log.Warn("No session cookie configured (collegescheduler.cookie or COOKIE), requests will likely be rejected")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client, err := whttp.NewClient(proxy)
		if err != nil {
			return err
		}
		fetcher, err := catalog.NewFetcher(catalog.Config{
			BaseURL: viper.GetString("collegescheduler.baseurl"),
			Term:    viper.GetString("collegescheduler.term"),
			Cookie:  viper.GetString("collegescheduler.cookie"),
			Delay:   viper.GetDuration("collegescheduler.delay"),
			Client:  client,
			Log:     utils.Log,
		})
		if err != nil {
			return err
		}
		defer fetcher.Close()

		raws, err := listRawCourses(ctx, fetcher, rawPath, subjects)
		if err != nil {
			return err
		}
		utils.Log.Infof("%d courses listed", len(raws))

		lock, err := utils.NewDBLock(getDBPath(cmd))
		if err != nil {
			return err
		}
		if err := lock.Lock(); err != nil {
			return err
		}
		defer lock.Unlock()

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		cached := map[string]bool{}
		if !refresh {
			if cached, err = db.CourseKeys(ctx); err != nil {
				return err
			}
		}

		added, updated := 0, 0
		res, err := fetcher.FetchAll(ctx, raws, catalog.FetchOptions{
			Concurrency: concurrency,
			Skip: func(rc catalog.RawCourse) bool {
				return cached[storage.CourseKey(rc.SubjectID, rc.Number)]
			},
			OnCourse: func(c catalog.Course) error {
				changes, err := db.UpsertCourses(ctx, []catalog.Course{c})
				for _, ch := range changes {
					utils.Log.Debugf("%s %s %s", ch.ChangeType, ch.SubjectID, ch.CallNumber)
					if ch.ChangeType == "added" {
						added++
					} else {
						updated++
					}
				}
				return err
			},
		})
		if res != nil {
			for _, f := range res.Failed {
				utils.Log.Warnf("Could not fetch %s", f.Error())
			}
			utils.Log.Infof("Fetched %d courses (%d added, %d updated), skipped %d cached, %d failed",
				len(res.Courses), added, updated, res.Skipped, len(res.Failed))
		}
		if err != nil {
			if errors.Is(err, catalog.ErrUnauthorized) {
				return fmt.Errorf("%w: refresh the cookie from a logged-in browser session", err)
			}
			return err
		}

		if outPath != "" {
			courses, err := db.ListCourses(ctx, storage.ListOptions{})
			if err != nil {
				return err
			}
			if err := catalog.SaveCourses(outPath, courses); err != nil {
				return err
			}
			utils.Log.Infof("Wrote %d courses to %s", len(courses), outPath)
		}
		return nil
	},
}

func listRawCourses(ctx context.Context, fetcher *catalog.Fetcher, rawPath, subjects string) ([]catalog.RawCourse, error) {
	if rawPath != "" {
		return catalog.LoadRawCourses(rawPath)
	}

	var raws []catalog.RawCourse
	for _, subject := range catalog.ParseSubjectList(subjects) {
		list, err := fetcher.ListSubjectCourses(ctx, subject)
		if err != nil {
			return nil, err
		}
		utils.Log.Debugf("%s: %d courses", subject, len(list))
		raws = append(raws, list...)
	}
	return raws, nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().String("raw", "", "JSON file listing courses ({subjectId, subjectLong, number, title})")
	fetchCmd.Flags().StringP("subjects", "s", "", "Comma separated subjects to list from the API (e.g. CSE,MATH)")
	fetchCmd.Flags().Bool("refresh", false, "Fetch courses even if they are already cached")
	fetchCmd.Flags().StringP("out", "o", "", "Also write the whole cache as a catalog JSON file")
	fetchCmd.Flags().IntP("concurrency", "t", 4, "Requests in flight (still spaced by collegescheduler.delay)")
}
