package arg

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tabtime/internal/ipc"
	"tabtime/internal/record"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the most recent time entries, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		conn, obj, err := trackerObject()
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		var payload string
		err = obj.Call(ipc.InterfaceName+".ListRecent", 0, int32(listLimit)).Store(&payload)
		if err != nil {
			log.Fatal("Failed to call method:", err)
		}

		var records []record.Record
		if err := json.Unmarshal([]byte(payload), &records); err != nil {
			log.Fatal("Failed to decode records:", err)
		}

		if len(records) == 0 {
			fmt.Println("No time entries recorded yet.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tWEBSITE\tMINUTES")
		for _, rec := range records {
			started := rec.Timestamp
			if t, err := rec.Started(); err == nil {
				started = t.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", started, rec.Website, rec.Duration)
		}
		w.Flush()
	},
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", ipc.DefaultRecentLimit, "maximum number of entries to show")
	rootCmd.AddCommand(listCmd)
}
