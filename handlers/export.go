package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"attendance-backend/models"
)

const (
	exportSheet = "Attendance"
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []interface{}{
	"Record ID", "Check-in time", "Check-in latitude", "Check-in longitude",
	"Check-out time", "Check-out latitude", "Check-out longitude", "Hours",
}

// ExportToday sends today's records as an .xlsx workbook.
func (h *AttendanceHandler) ExportToday(c *gin.Context) {
	t := h.tracker(c)
	recs, err := t.TodayRecords(c.Request.Context())
	if err != nil {
		respondAttendanceError(c, err)
		return
	}

	loc := h.location
	if loc == nil {
		loc = time.Local
	}
	body, err := buildWorkbook(recs, loc)
	if err != nil {
		log.Printf("Error building attendance export: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to build export"})
		return
	}

	filename := fmt.Sprintf("attendance-%s.xlsx", time.Now().In(loc).Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxType, body)
}

func buildWorkbook(recs []models.AttendanceRecord, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	for i, r := range recs {
		row := []interface{}{
			r.ID.String(),
			r.CheckInTime.In(loc).Format(time.RFC3339),
			r.CheckInLatitude,
			r.CheckInLongitude,
			"", "", "", "",
		}
		if r.CheckOutTime != nil {
			row[4] = r.CheckOutTime.In(loc).Format(time.RFC3339)
			row[7] = fmt.Sprintf("%.2f", r.CheckOutTime.Sub(r.CheckInTime).Hours())
		}
		if r.CheckOutLatitude != nil {
			row[5] = *r.CheckOutLatitude
		}
		if r.CheckOutLongitude != nil {
			row[6] = *r.CheckOutLongitude
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
