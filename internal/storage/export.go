package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

type ExportData struct {
	Run    RunMetadata `json:"run"`
	Steps  int         `json:"steps"`
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

// WriteCSV writes a "time,x0,x1,..." table with full float precision.
func WriteCSV(w io.Writer, solutions []solver.Solution) error {
	cw := csv.NewWriter(w)

	if len(solutions) > 0 {
		header := []string{"time"}
		for i := range solutions[0].State {
			header = append(header, fmt.Sprintf("x%d", i))
		}
		if err := cw.Write(header); err != nil {
			return err
		}
	}

	for _, sol := range solutions {
		row := []string{strconv.FormatFloat(sol.Time, 'g', -1, 64)}
		for _, val := range sol.State {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportJSON writes run metadata and a trajectory as indented JSON.
func ExportJSON(w io.Writer, meta RunMetadata, states []dynamo.State, times []float64) error {
	data := ExportData{
		Run:    meta,
		Steps:  len(times),
		Times:  times,
		States: make([][]float64, len(states)),
	}

	for i, s := range states {
		data.States[i] = s
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Solutions zips states and times back into solutions.
func Solutions(states []dynamo.State, times []float64) []solver.Solution {
	n := min(len(states), len(times))
	out := make([]solver.Solution, n)
	for i := 0; i < n; i++ {
		out[i] = solver.Solution{State: states[i], Time: times[i]}
	}
	return out
}
