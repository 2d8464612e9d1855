package helper

import (
	"math/rand/v2"

	"github.com/linerds/timetable-go/timetable"
)

// GeneratorSize controls how large a generated timetable is.
type GeneratorSize struct {
	Groups      int
	Teachers    int
	Subjects    int
	Auditoriums int
	Days        int
	PairsPerDay int
}

// DefaultGeneratorSize yields a faculty-sized timetable of roughly 30 thousand events.
var DefaultGeneratorSize = GeneratorSize{
	Groups:      60,
	Teachers:    120,
	Subjects:    80,
	Auditoriums: 40,
	Days:        100,
	PairsPerDay: 5,
}

// GenerateTimetable builds a deterministic synthetic timetable for benchmarks.
// Every group attends at most one event per pair; lectures join up to four groups,
// other kinds are taught to a single group by one or two teachers.
func GenerateTimetable(seed uint64, size GeneratorSize) timetable.Timetable {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // deterministic fixtures

	fixtures := make([]FixtureEvent, 0, size.Days*size.PairsPerDay*size.Groups/2)
	nextID := timetable.EventID(1)

	for day := range size.Days {
		for pair := range size.PairsPerDay {
			busy := make(map[timetable.GroupID]bool)

			for g := range size.Groups {
				groupID := timetable.GroupID(g + 1)
				if busy[groupID] || rng.IntN(3) == 0 {
					continue
				}

				kind := timetable.EventKind(rng.IntN(int(timetable.UnknownKind)))
				groups := []timetable.GroupID{groupID}

				if kind == timetable.Lecture {
					for extra := range rng.IntN(4) {
						candidate := timetable.GroupID((g+extra+1)%size.Groups + 1)
						if !busy[candidate] {
							groups = append(groups, candidate)
						}
					}
				}

				for _, id := range groups {
					busy[id] = true
				}

				teachers := []timetable.TeacherID{timetable.TeacherID(rng.IntN(size.Teachers) + 1)}
				if kind != timetable.Lecture && rng.IntN(4) == 0 {
					teachers = append(teachers, timetable.TeacherID(rng.IntN(size.Teachers)+1))
				}

				fixtures = append(fixtures, FixtureEvent{
					ID:         nextID,
					Kind:       kind,
					Subject:    timetable.SubjectID(rng.IntN(size.Subjects) + 1),
					Auditorium: timetable.AuditoriumID(rng.IntN(size.Auditoriums) + 1),
					Groups:     groups,
					Teachers:   teachers,
					Pair:       day*12 + pair,
				})
				nextID++
			}
		}
	}

	return GivenTimetable(fixtures...)
}
