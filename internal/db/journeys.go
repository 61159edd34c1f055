package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Jacksery/bus-tracker/internal/transit"
)

// FetchActiveJourneys returns journey records whose window overlaps
// [now - lookback, now + horizon]: everything currently underway plus
// journeys departing soon. Expected departures may be NULL when no live
// revision has been recorded yet; such rows keep a zero RecordedAt so that
// any later observation, however early, supersedes the bare schedule.
func FetchActiveJourneys(ctx context.Context, db *sql.DB, now time.Time, lookback, horizon time.Duration) ([]transit.Record, error) {
	q := `
SELECT journey_id, line_ref, direction_ref, operator_ref, vehicle_ref,
       origin_name, destination_name,
       scheduled_departure, expected_departure, scheduled_arrival, recorded_at
FROM journeys
WHERE scheduled_arrival >= $1 AND scheduled_departure <= $2
ORDER BY scheduled_departure`

	rows, err := db.QueryContext(ctx, q, now.Add(-lookback), now.Add(horizon))
	if err != nil {
		return nil, fmt.Errorf("query journeys: %w", err)
	}
	defer rows.Close()

	var recs []transit.Record
	for rows.Next() {
		var r transit.Record
		var expected sql.NullTime
		var recorded sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.LineRef, &r.DirectionRef, &r.OperatorRef, &r.VehicleRef,
			&r.OriginName, &r.DestinationName,
			&r.ScheduledDeparture, &expected, &r.ScheduledArrival, &recorded,
		); err != nil {
			return nil, fmt.Errorf("scan journey: %w", err)
		}
		if expected.Valid {
			t := expected.Time
			r.ExpectedDeparture = &t
		}
		if recorded.Valid {
			r.RecordedAt = recorded.Time
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
