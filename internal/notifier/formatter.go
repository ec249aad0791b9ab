package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"LMPSentinel/internal/detector"
	"LMPSentinel/internal/model"
	"LMPSentinel/internal/recorder"
)

// DefaultMaxFlags caps how many outliers a single message lists.
const DefaultMaxFlags = 20

const hourLayout = "2006-01-02 15:04"

// FormatReport formats a run report into a Telegram message.
func FormatReport(r *model.Report, maxFlags int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("⚡ <b>LMPSentinel</b> | %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Source: %s\n", html.EscapeString(r.Source)))
	b.WriteString(fmt.Sprintf("Series: %s → %s (%d h)\n", r.Start.Format(hourLayout), r.End.Format(hourLayout), r.Points))
	b.WriteString(fmt.Sprintf("Model: %s on MA%d, %d iterations\n", r.Fit.Order, r.AnalysisWindow, r.Fit.Iterations))
	if st := r.Stationarity; st != nil && !st.Stationary {
		b.WriteString(fmt.Sprintf("⚠️ ADF %.2f above %.2f, differenced series may not be stationary\n", st.Statistic, st.Critical5))
	}
	b.WriteString("\n" + FormatThreshold(r.Threshold) + "\n")

	if len(r.Flags) == 0 {
		b.WriteString("✅ No outliers flagged\n")
		return b.String()
	}

	high, low := detector.CountByDirection(r.Flags)
	b.WriteString(fmt.Sprintf("🚨 <b>Outliers: %d</b> (high %d, low %d)\n", len(r.Flags), high, low))
	if maxFlags <= 0 {
		maxFlags = DefaultMaxFlags
	}
	for i, f := range r.Flags {
		if i == maxFlags {
			b.WriteString(fmt.Sprintf("  … and %d more\n", len(r.Flags)-maxFlags))
			break
		}
		arrow := "▲"
		if f.Direction == model.DirectionLow {
			arrow = "▼"
		}
		b.WriteString(fmt.Sprintf("  %s %s  %.2f (fit %.2f, %+.2f)\n",
			arrow, f.Time.Format(hourLayout), f.Value, f.Fitted, f.Residual))
	}
	return b.String()
}

// FormatThreshold describes the cutoff and how it was obtained.
func FormatThreshold(th model.Threshold) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📏 <b>Cutoff</b> (%s): residual &gt; %.3f", th.Mode, th.Upper))
	if th.Lower != 0 {
		b.WriteString(fmt.Sprintf(" or &lt; %.3f", th.Lower))
	}
	b.WriteString("\n")
	if th.Samples > 0 {
		b.WriteString(fmt.Sprintf("Q1 %.3f | Q3 %.3f | IQR %.3f | k=%.1f | n=%d\n",
			th.Q1, th.Q3, th.IQR, th.Multiplier, th.Samples))
	}
	return b.String()
}

// FormatRuns lists recent runs, newest first.
func FormatRuns(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "No runs recorded yet"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		if r.Status != "ok" {
			b.WriteString(fmt.Sprintf("#%d %s ❌ %s\n", r.ID, r.Timestamp.Format(hourLayout), html.EscapeString(r.Status)))
			continue
		}
		b.WriteString(fmt.Sprintf("#%d %s %s, %d h, %d flags, cutoff %.2f\n",
			r.ID, r.Timestamp.Format(hourLayout), r.Order, r.Points, r.Flags, r.Upper))
	}
	return b.String()
}

// FormatFailure reports a failed run.
func FormatFailure(source string, err error, at time.Time) string {
	return fmt.Sprintf("❌ <b>LMPSentinel run failed</b> | %s\n\nSource: %s\n%s",
		at.Format(hourLayout), html.EscapeString(source), html.EscapeString(err.Error()))
}
