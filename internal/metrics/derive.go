package metrics

import (
	"time"

	"unifimon/internal/humanize"
	"unifimon/internal/model"
	"unifimon/internal/units"
)

// Derive projects a sample onto every published value.
func Derive(s model.Sample, at time.Time) model.Snapshot {
	return model.Snapshot{
		UpdatedAt: at,

		SystemUptime:          s.SystemUptimeSeconds,
		SystemUptimeFormatted: humanize.Duration(s.SystemUptimeSeconds),

		Download:    rate(s.RxRate),
		MaxDownload: rate(s.MaxRxRate),
		Upload:      rate(s.TxRate),
		MaxUpload:   rate(s.MaxTxRate),

		MonthlyTrafficBytes:     s.MonthlyBytes,
		MonthlyTrafficFormatted: humanize.Bytes(s.MonthlyBytes),
	}
}

func rate(bytes float32) model.Rate {
	return model.Rate{
		Bytes:  bytes,
		MBytes: units.MegaBytes(bytes),
		MBit:   units.MegaBits(bytes),
	}
}

// Entries lists the snapshot in panel order. IDs, descriptions and units are
// what display layouts bind to; do not rename them.
func Entries(s model.Snapshot) []model.Entry {
	entries := []model.Entry{
		{ID: "SystemUptime", Description: "System uptime in seconds", Unit: "s", Value: s.SystemUptime},
		{ID: "SystemUptimeFormatted", Description: "System uptime in a human readable format", Value: s.SystemUptimeFormatted},
		{ID: "MonthlyTrafficBytes", Description: "Monthly traffic in Bytes", Unit: "B", Value: s.MonthlyTrafficBytes},
		{ID: "MonthlyTrafficFormatted", Description: "Monthly traffic in a human readable format", Value: s.MonthlyTrafficFormatted},
	}
	entries = append(entries, rateEntries("DownloadRate", "Current download rate", s.Download)...)
	entries = append(entries, rateEntries("MaxDownloadRate", "Max download rate", s.MaxDownload)...)
	entries = append(entries, rateEntries("UploadRate", "Current upload rate", s.Upload)...)
	entries = append(entries, rateEntries("MaxUploadRate", "Max upload rate", s.MaxUpload)...)
	return entries
}

func rateEntries(id, desc string, r model.Rate) []model.Entry {
	return []model.Entry{
		{ID: id + "Bytes", Description: desc + " in Bytes", Unit: "B/s", Value: r.Bytes},
		{ID: id + "MBytes", Description: desc + " in MegaBytes", Unit: "MB/s", Value: r.MBytes},
		{ID: id + "MBit", Description: desc + " in MegaBit", Unit: "Mbit/s", Value: r.MBit},
	}
}
