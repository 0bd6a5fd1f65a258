package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workforcehq/workforce-sdk/modules/workforce/services"
)

func TestWriteThenOpenRoundTrip(t *testing.T) {
	sheets := []services.SheetDoc{
		{
			Name:   services.SheetCompany,
			Header: services.CompanyHeader,
			Rows: [][]any{
				{"ACME", "Acme Industrial"},
				{"BOLT", "Bolt Logistics"},
			},
		},
		{
			Name:   services.SheetTaskProcess,
			Header: services.TaskProcessHeader,
			Rows: [][]any{
				{"FRAME", "CHASSIS", 1},
			},
		},
	}

	data, err := Write(sheets)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	reader, err := Open(data)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, []string{services.SheetCompany, services.SheetTaskProcess}, reader.SheetNames())

	wb, err := services.ParseWorkbook(reader)
	require.NoError(t, err)
	require.Len(t, wb.Companies, 2)
	assert.Equal(t, services.CompanyRow{Code: "ACME", Name: "Acme Industrial"}, wb.Companies[0])
	require.Len(t, wb.TaskProcesses, 1)
	assert.Equal(t, "1", wb.TaskProcesses[0].Order, "numeric cells come back as strings")
}

func TestOpenRejectsGarbage(t *testing.T) {
	_, err := Open([]byte("this is not a workbook"))
	require.Error(t, err)
}

func TestWriteEmptySheetKeepsHeader(t *testing.T) {
	data, err := Write([]services.SheetDoc{
		{Name: services.SheetJobTask, Header: services.JobTaskHeader},
	})
	require.NoError(t, err)

	reader, err := Open(data)
	require.NoError(t, err)
	defer reader.Close()

	rows, err := reader.Rows(services.SheetJobTask)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, services.JobTaskHeader, rows[0])
}
