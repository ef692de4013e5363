package arg

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tabtime/internal/ipc"
	"tabtime/internal/record"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all time entries as a CSV file",
	Run: func(cmd *cobra.Command, args []string) {
		conn, obj, err := trackerObject()
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		var csv string
		err = obj.Call(ipc.InterfaceName+".ExportCsv", 0).Store(&csv)
		if err != nil {
			if strings.Contains(err.Error(), "no records") {
				fmt.Println("No data to export.")
				os.Exit(1)
			}
			log.Fatal("Failed to call method:", err)
		}

		if err := os.WriteFile(exportOutput, []byte(csv), 0644); err != nil {
			log.Fatal("Failed to write export file:", err)
		}
		fmt.Println("Exported to", exportOutput)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", record.ExportFilename, "file to write the CSV to")
	rootCmd.AddCommand(exportCmd)
}
