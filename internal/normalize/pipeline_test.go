package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-flight-board/internal/model"
	"go-flight-board/internal/source/aeroapi"
	"go-flight-board/internal/source/aviationstack"
	"go-flight-board/internal/source/scrape"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	p := New(model.Airport{Code: "MEX", ICAO: "MMMX", Name: "AICM", City: "CDMX", Timezone: loc.String()}, loc)
	p.Now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, loc) }
	return p
}

func avArrival(num, sched, status string) *aviationstack.Flight {
	r := &aviationstack.Flight{FlightStatus: status}
	r.Flight.IATA = num
	r.Departure = aviationstack.Endpoint{Airport: "LAX", IATA: "LAX"}
	r.Arrival.Scheduled = sched
	return r
}

func TestNormalize_EndToEndAviationstackArrival(t *testing.T) {
	p := testPipeline(t)
	r := &aviationstack.Flight{FlightStatus: "active"}
	r.Flight.IATA = "AM123"
	r.Airline.Name = "Aeromexico"
	r.Departure = aviationstack.Endpoint{Airport: "LAX", IATA: "LAX", Scheduled: "2026-10-16T14:30:00-06:00"}
	r.Arrival = aviationstack.Endpoint{Scheduled: "2026-10-16T16:05:00-06:00"}

	out, st := p.Normalize([]any{r}, model.Arrival)
	require.Len(t, out, 1)
	f := out[0]
	assert.Equal(t, "AM123", f.FlightNumber)
	assert.Equal(t, "Aeromexico", f.Airline)
	assert.Equal(t, "AM", f.AirlineCode)
	assert.Equal(t, "LAX", model.Deref(f.Origin))
	assert.Equal(t, "LAX", model.Deref(f.OriginCode))
	assert.Nil(t, f.Destination)
	assert.Nil(t, f.DestinationCode)
	assert.Equal(t, "2026-10-16T16:05:00-06:00", model.Deref(f.Scheduled))
	assert.Equal(t, model.StatusEnRoute, f.Status)
	assert.Equal(t, 1, st.Kept)
}

func TestNormalize_DropsMissingFlightNumber(t *testing.T) {
	p := testPipeline(t)
	raws := []any{
		avArrival("", "2026-10-16T10:00:00-06:00", "scheduled"),
		avArrival("  ", "2026-10-16T11:00:00-06:00", "scheduled"),
		avArrival("Y4100", "2026-10-16T12:00:00-06:00", "scheduled"),
		"not a record",
	}
	out, st := p.Normalize(raws, model.Arrival)
	require.Len(t, out, 1)
	assert.Equal(t, "Y4100", out[0].FlightNumber)
	assert.Equal(t, "Volaris", out[0].Airline)
	assert.Equal(t, 2, st.MissingNumber)
	assert.Equal(t, 1, st.Unsupported)
}

func TestNormalize_FlightNumberFallbacks(t *testing.T) {
	p := testPipeline(t)
	icao := avArrival("", "2026-10-16T10:00:00-06:00", "")
	icao.Flight.ICAO = "AMX401"
	composed := avArrival("", "2026-10-16T11:00:00-06:00", "")
	composed.Airline.IATA = "VB"
	composed.Flight.Number = "1020"
	out, _ := p.Normalize([]any{icao, composed}, model.Arrival)
	require.Len(t, out, 2)
	assert.Equal(t, "AMX401", out[0].FlightNumber)
	assert.Equal(t, "Aeroméxico", out[0].Airline)
	assert.Equal(t, "VB1020", out[1].FlightNumber)
	assert.Equal(t, "Viva Aerobus", out[1].Airline)
	assert.Equal(t, model.StatusScheduled, out[1].Status)
}

func TestNormalize_DayFilterBoundaries(t *testing.T) {
	p := testPipeline(t)
	raws := []any{
		avArrival("AM1", "2026-10-16T23:59:00-06:00", "scheduled"),
		avArrival("AM2", "2026-10-17T00:01:00-06:00", "scheduled"),
		avArrival("AM3", "not a time", "scheduled"),
		avArrival("AM4", "", "scheduled"),
		// 05:30Z = 23:30 local on the 16th
		avArrival("AM5", "2026-10-17T05:30:00Z", "scheduled"),
		// 05:59Z on the 16th is 23:59 local on the 15th
		avArrival("AM6", "2026-10-16T05:59:00Z", "scheduled"),
	}
	out, st := p.Normalize(raws, model.Arrival)
	var nums []string
	for _, f := range out {
		nums = append(nums, f.FlightNumber)
	}
	assert.Equal(t, []string{"AM5", "AM1"}, nums)
	assert.Equal(t, 2, st.NoTimestamp)
	assert.Equal(t, 2, st.OtherDay)
}

func TestNormalize_DedupPrefersLanded(t *testing.T) {
	p := testPipeline(t)
	raws := []any{
		avArrival("AM9", "2026-10-16T09:00:00-06:00", "scheduled"),
		avArrival("AM9", "2026-10-16T09:00:00-06:00", "landed"),
	}
	out, st := p.Normalize(raws, model.Arrival)
	require.Len(t, out, 1)
	assert.Equal(t, model.StatusLanded, out[0].Status)
	assert.Equal(t, 1, st.Duplicates)
}

func TestNormalize_DedupTieBreaksOnEarliestScheduled(t *testing.T) {
	p := testPipeline(t)
	late := avArrival("AM9", "2026-10-16T18:00:00-06:00", "scheduled")
	late.Arrival.Gate = "late"
	early := avArrival("AM9", "2026-10-16T08:00:00-06:00", "scheduled")
	early.Arrival.Gate = "early"
	cancelled := avArrival("AM9", "2026-10-16T07:00:00-06:00", "cancelled")
	out, _ := p.Normalize([]any{late, cancelled, early}, model.Arrival)
	require.Len(t, out, 1)
	assert.Equal(t, "early", model.Deref(out[0].Gate))
}

func TestNormalize_SortedBySchedule(t *testing.T) {
	p := testPipeline(t)
	raws := []any{
		avArrival("AM3", "2026-10-16T15:00:00-06:00", "scheduled"),
		avArrival("AM1", "2026-10-16T07:00:00-06:00", "scheduled"),
		avArrival("AM2", "2026-10-16T15:00:00-06:00", "scheduled"),
		&scrape.Row{FlightNumber: "Y4 200", City: "Cancún (CUN)", Time: "06:45", StatusText: "Scheduled"},
	}
	out, _ := p.Normalize(raws, model.Arrival)
	var nums []string
	for _, f := range out {
		nums = append(nums, f.FlightNumber)
	}
	assert.Equal(t, []string{"Y4200", "AM1", "AM2", "AM3"}, nums)
}

func TestNormalize_DirectionFieldsStructural(t *testing.T) {
	p := testPipeline(t)
	dep := &aviationstack.Flight{FlightStatus: ""}
	dep.Flight.IATA = "AM500"
	dep.Departure = aviationstack.Endpoint{Scheduled: "2026-10-16T10:00:00-06:00", Actual: "2026-10-16T10:12:00-06:00", Gate: "52"}
	dep.Arrival = aviationstack.Endpoint{Airport: "Madrid Barajas", IATA: "MAD"}
	out, _ := p.Normalize([]any{dep}, model.Departure)
	require.Len(t, out, 1)
	f := out[0]
	assert.Nil(t, f.Origin)
	assert.Nil(t, f.OriginCode)
	assert.Equal(t, "Madrid Barajas", model.Deref(f.Destination))
	assert.Equal(t, "MAD", model.Deref(f.DestinationCode))
	assert.Equal(t, "52", model.Deref(f.Gate))
	assert.Equal(t, model.StatusDeparted, f.Status)
	assert.Equal(t, model.Departure, f.Direction())
}

func TestNormalize_AeroAPI(t *testing.T) {
	p := testPipeline(t)
	ts := func(s string) *time.Time {
		v, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return &v
	}
	str := func(s string) *string { return &s }
	landed := &aeroapi.Flight{
		Ident:               "AMX401",
		IdentIATA:           str("AM401"),
		OperatorIATA:        str("AM"),
		Origin:              &aeroapi.AirportRef{CodeIATA: str("GDL"), City: str("Guadalajara")},
		ScheduledIn:         ts("2026-10-16T16:00:00Z"),
		ActualOff:           ts("2026-10-16T14:50:00Z"),
		ActualOn:            ts("2026-10-16T15:55:00Z"),
		TerminalDestination: str("2"),
	}
	scheduled := &aeroapi.Flight{
		Ident:       "AMX401",
		IdentIATA:   str("AM401"),
		ScheduledIn: ts("2026-10-16T16:00:00Z"),
		EstimatedOn: ts("2026-10-16T15:50:00Z"),
	}
	onlyEstimate := &aeroapi.Flight{
		Ident:        "VOI700",
		OperatorICAO: str("VOI"),
		ScheduledOn:  ts("2026-10-16T20:00:00Z"),
		EstimatedOn:  ts("2026-10-16T20:10:00Z"),
	}
	diverted := &aeroapi.Flight{Ident: "UAL1", Diverted: true, ScheduledIn: ts("2026-10-16T21:00:00Z")}

	out, st := p.Normalize([]any{scheduled, landed, onlyEstimate, diverted}, model.Arrival)
	require.Len(t, out, 3)
	assert.Equal(t, 1, st.Duplicates)

	assert.Equal(t, "AM401", out[0].FlightNumber)
	assert.Equal(t, model.StatusLanded, out[0].Status)
	assert.Equal(t, "Guadalajara", model.Deref(out[0].Origin))
	assert.Equal(t, "GDL", model.Deref(out[0].OriginCode))
	assert.Equal(t, "2026-10-16T10:00:00-06:00", model.Deref(out[0].Scheduled))
	assert.Equal(t, "2", model.Deref(out[0].Terminal))

	assert.Equal(t, "VOI700", out[1].FlightNumber)
	assert.Equal(t, "Volaris", out[1].Airline)
	assert.Equal(t, model.StatusScheduled, out[1].Status)
	assert.Equal(t, "Unknown", model.Deref(out[1].Origin))
	assert.NotNil(t, out[1].OriginCode)

	assert.Equal(t, model.StatusDiverted, out[2].Status)
	assert.Equal(t, "United Airlines", out[2].Airline)
}

func TestNormalize_ScrapeRows(t *testing.T) {
	p := testPipeline(t)
	raws := []any{
		&scrape.Row{FlightNumber: "IB6403", City: "Madrid (MAD)", Time: "07:10", StatusText: "Landed 06:58"},
		&scrape.Row{FlightNumber: "ZZ99", City: "Somewhere", Time: "09:00", StatusText: "Boarding soon"},
		&scrape.Row{FlightNumber: "", City: "Header"},
	}
	out, st := p.Normalize(raws, model.Arrival)
	require.Len(t, out, 2)
	assert.Equal(t, 1, st.MissingNumber)
	assert.Equal(t, "Iberia", out[0].Airline)
	assert.Equal(t, "Madrid", model.Deref(out[0].Origin))
	assert.Equal(t, "MAD", model.Deref(out[0].OriginCode))
	assert.Equal(t, "07:10", model.Deref(out[0].Scheduled))
	assert.Equal(t, model.StatusLanded, out[0].Status)
	assert.Equal(t, "ZZ", out[1].Airline)
	assert.Equal(t, model.Status("Boarding Soon"), out[1].Status)
}

func TestAssembleAndDegraded(t *testing.T) {
	p := testPipeline(t)
	s := p.Assemble(nil, nil)
	assert.NotNil(t, s.Arrivals)
	assert.NotNil(t, s.Departures)
	assert.Equal(t, "2026-10-16T12:00:00-06:00", s.LastUpdated)
	assert.Empty(t, s.Error)

	d := p.Degraded(errors.New("upstream down"))
	assert.Equal(t, "upstream down", d.Error)
	assert.Empty(t, d.Arrivals)
	assert.True(t, d.Degraded())
	assert.Equal(t, "MEX", d.Airport.Code)

	assert.Equal(t, "unknown error", DegradedSnapshot(p.Airport, p.now(), nil).Error)
}
