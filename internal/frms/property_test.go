package frms

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// recordsFrom spreads flight times one per day ending on testAsOf.
func recordsFrom(flights []float64) []Record {
	records := make([]Record, len(flights))
	for i, f := range flights {
		records[i] = flown(daysBefore(testAsOf, i), f)
	}
	return records
}

func TestAggregateProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	flights := gen.SliceOf(gen.Float64Range(0, 14))

	properties.Property("longer windows never sum less", prop.ForAll(
		func(f []float64, days int) bool {
			records := recordsFrom(f)
			short := Aggregate(records, testAsOf, days)
			long := Aggregate(records, testAsOf, days+1)
			return long.FlightHours >= short.FlightHours && long.DutyHours >= short.DutyHours
		},
		flights, gen.IntRange(1, 400),
	))

	properties.Property("adding a record never decreases totals", prop.ForAll(
		func(f []float64, extra float64, offset int) bool {
			records := recordsFrom(f)
			before := Aggregate(records, testAsOf, 28)
			after := Aggregate(append(records, flown(daysBefore(testAsOf, offset), extra)), testAsOf, 28)
			return after.FlightHours >= before.FlightHours && after.DutyHours >= before.DutyHours
		},
		flights, gen.Float64Range(0, 14), gen.IntRange(0, 60),
	))

	properties.Property("aggregation is idempotent", prop.ForAll(
		func(f []float64) bool {
			records := recordsFrom(f)
			return reflect.DeepEqual(Aggregate(records, testAsOf, 28), Aggregate(records, testAsOf, 28))
		},
		flights,
	))

	properties.TestingRun(t)
}

func TestEvaluateProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	limit := limit28("A320")

	properties.Property("status is monotone in hours used", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			return Evaluate(a, limit).Level <= Evaluate(b, limit).Level
		},
		gen.Float64Range(0, 150), gen.Float64Range(0, 150),
	))

	properties.Property("violation leaves no duty", prop.ForAll(
		func(used float64) bool {
			totals := CumulativeTotals{Hours: map[WindowKind]float64{"flight_28d": used}}
			p := Projector{Fleets: testFleets()}.Project(totals, []LimitEntry{limit}, nil, testAsOf, a320Config())
			if p.Status.IsViolation() {
				return p.MaxDutyHours == 0
			}
			return p.MaxDutyHours > 0 && p.MaxDutyHours <= limit.MaxHours-used
		},
		gen.Float64Range(0, 150),
	))

	properties.TestingRun(t)
}
