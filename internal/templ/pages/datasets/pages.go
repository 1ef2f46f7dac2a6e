// Package datasets renders the dataset and document pages.
package datasets

import (
	"github.com/DukeRupert/datadeck/internal/domain"
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

const badgeClass = "inline-flex items-center rounded-md px-2 py-1 text-xs font-medium ring-1 ring-inset"

var (
	datasetColumns  = []string{"Name", "Description", "Documents", "Created"}
	documentColumns = []string{"Name", "Words", "Size", "Uploaded", "Status", ""}
)

type batchActionOption struct {
	action domain.BatchAction
	label  string
}

var batchActionOptions = []batchActionOption{
	{domain.BatchActionEnable, "Enable"},
	{domain.BatchActionDisable, "Disable"},
	{domain.BatchActionArchive, "Archive"},
	{domain.BatchActionUnarchive, "Unarchive"},
	{domain.BatchActionDelete, "Delete"},
}

func statusClass(status string) string {
	switch status {
	case "available":
		return twmerge.Merge(badgeClass, "bg-green-50 text-green-700 ring-green-600/20")
	case "error":
		return twmerge.Merge(badgeClass, "bg-red-50 text-red-700 ring-red-600/10")
	case "queuing", "indexing":
		return twmerge.Merge(badgeClass, "bg-yellow-50 text-yellow-800 ring-yellow-600/20")
	default:
		return twmerge.Merge(badgeClass, "bg-gray-50 text-gray-600 ring-gray-500/10")
	}
}
