package tables

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"ntcstep/internal/errs"
)

// MetricKeys names the twelve step-descriptor columns in the fixed order
// used throughout the engine: the nine torsions, then CC, NN, mu.
var MetricKeys = [12]string{
	"delta_1", "epsilon_1", "zeta_1", "alpha_2", "beta_2", "gamma_2",
	"delta_2", "chi_1", "chi_2", "CC", "NN", "mu",
}

// ClusterRow is one row of the clusters reference table.
type ClusterRow struct {
	Number          int
	NtCName         string
	CANAName        string
	MetricMean      [12]float64
	MetricDeviation [12]float64
	PseudoRef1      float64
	PseudoRef2      float64
}

// GoldenStepRow is one row of the golden-steps reference table.
type GoldenStepRow struct {
	ClusterNumber int
	Metrics       [12]float64
	Name          string
	Pucker1       string
	Pucker2       string
	Nu1           [5]float64
	Nu2           [5]float64
}

// ConfalRow is one row of the confals reference table.
type ConfalRow struct {
	ClusterNumber int
	Sigma         [12]float64
	NuSigma1      [5]float64
	NuSigma2      [5]float64
}

// NuAngleRow is one row of the per-cluster nu-angle-statistics table.
type NuAngleRow struct {
	ClusterNumber int
	Mean1         [5]float64
	Deviation1    [5]float64
	Mean2         [5]float64
	Deviation2    [5]float64
}

// LoadClusters parses the clusters reference table.
func LoadClusters(r io.Reader) ([]ClusterRow, []Warning, error) {
	required := []string{"cluster_number", "NtC", "CANA"}
	for _, k := range MetricKeys {
		required = append(required, k+"_deviation", k+"_meanValue")
	}
	required = append(required, "ribosePseudorotation_1", "ribosePseudorotation_2")

	t, warnings, err := parseRaw(r, required)
	if err != nil {
		return nil, nil, err
	}

	var out []ClusterRow
	for i, row := range t.rows {
		num, ok := t.colInt(row, "cluster_number")
		if !ok {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad cluster_number"})
			continue
		}
		ntc, _ := t.col(row, "NtC")
		cana, _ := t.col(row, "CANA")
		p1, ok1 := t.colFloat(row, "ribosePseudorotation_1")
		p2, ok2 := t.colFloat(row, "ribosePseudorotation_2")
		if !ok1 || !ok2 {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad pseudorotation reference"})
			continue
		}

		cr := ClusterRow{Number: num, NtCName: ntc, CANAName: cana, PseudoRef1: p1, PseudoRef2: p2}
		bad := false
		for mi, key := range MetricKeys {
			dev, ok := t.colFloat(row, key+"_deviation")
			if !ok {
				bad = true
				break
			}
			mean, ok := t.colFloat(row, key+"_meanValue")
			if !ok {
				bad = true
				break
			}
			cr.MetricDeviation[mi] = dev
			cr.MetricMean[mi] = mean
		}
		if bad {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad metric column"})
			continue
		}
		out = append(out, cr)
	}
	return out, warnings, nil
}

// LoadGoldenSteps parses the golden-steps reference table.
func LoadGoldenSteps(r io.Reader) ([]GoldenStepRow, []Warning, error) {
	required := []string{"cluster_number", "name", "pucker_1", "pucker_2"}
	required = append(required, MetricKeys[:]...)
	for _, nuc := range []string{"1", "2"} {
		for n := 0; n < 5; n++ {
			required = append(required, "nu"+strconv.Itoa(n)+"_"+nuc)
		}
	}

	t, warnings, err := parseRaw(r, required)
	if err != nil {
		return nil, nil, err
	}

	var out []GoldenStepRow
	for i, row := range t.rows {
		num, ok := t.colInt(row, "cluster_number")
		if !ok {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad cluster_number"})
			continue
		}
		name, _ := t.col(row, "name")
		p1, _ := t.col(row, "pucker_1")
		p2, _ := t.col(row, "pucker_2")

		gs := GoldenStepRow{ClusterNumber: num, Name: name, Pucker1: p1, Pucker2: p2}
		bad := false
		for mi, key := range MetricKeys {
			v, ok := t.colFloat(row, key)
			if !ok {
				bad = true
				break
			}
			gs.Metrics[mi] = v
		}
		if !bad {
			for n := 0; n < 5; n++ {
				v1, ok1 := t.colFloat(row, "nu"+strconv.Itoa(n)+"_1")
				v2, ok2 := t.colFloat(row, "nu"+strconv.Itoa(n)+"_2")
				if !ok1 || !ok2 {
					bad = true
					break
				}
				gs.Nu1[n] = v1
				gs.Nu2[n] = v2
			}
		}
		if bad {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad metric/nu column"})
			continue
		}
		out = append(out, gs)
	}
	return out, warnings, nil
}

// LoadConfals parses the confals reference table.
func LoadConfals(r io.Reader) ([]ConfalRow, []Warning, error) {
	required := []string{"cluster_number"}
	required = append(required, MetricKeys[:]...)
	for _, nuc := range []string{"1", "2"} {
		for n := 0; n < 5; n++ {
			required = append(required, "nu"+strconv.Itoa(n)+"_"+nuc)
		}
	}

	t, warnings, err := parseRaw(r, required)
	if err != nil {
		return nil, nil, err
	}

	var out []ConfalRow
	for i, row := range t.rows {
		num, ok := t.colInt(row, "cluster_number")
		if !ok {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad cluster_number"})
			continue
		}
		cr := ConfalRow{ClusterNumber: num}
		bad := false
		for mi, key := range MetricKeys {
			v, ok := t.colFloat(row, key)
			if !ok {
				bad = true
				break
			}
			cr.Sigma[mi] = v
		}
		if !bad {
			for n := 0; n < 5; n++ {
				v1, ok1 := t.colFloat(row, "nu"+strconv.Itoa(n)+"_1")
				v2, ok2 := t.colFloat(row, "nu"+strconv.Itoa(n)+"_2")
				if !ok1 || !ok2 {
					bad = true
					break
				}
				cr.NuSigma1[n] = v1
				cr.NuSigma2[n] = v2
			}
		}
		if bad {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad sigma column"})
			continue
		}
		out = append(out, cr)
	}
	return out, warnings, nil
}

// LoadNuAngles parses the per-cluster nu-angle mean/deviation table.
func LoadNuAngles(r io.Reader) ([]NuAngleRow, []Warning, error) {
	required := []string{"cluster_number"}
	for _, nuc := range []string{"1", "2"} {
		for n := 0; n < 5; n++ {
			required = append(required, "nu"+strconv.Itoa(n)+"_"+nuc+"_mean", "nu"+strconv.Itoa(n)+"_"+nuc+"_deviation")
		}
	}

	t, warnings, err := parseRaw(r, required)
	if err != nil {
		return nil, nil, err
	}

	var out []NuAngleRow
	for i, row := range t.rows {
		num, ok := t.colInt(row, "cluster_number")
		if !ok {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad cluster_number"})
			continue
		}
		na := NuAngleRow{ClusterNumber: num}
		bad := false
		for n := 0; n < 5; n++ {
			m1, ok1 := t.colFloat(row, "nu"+strconv.Itoa(n)+"_1_mean")
			d1, ok2 := t.colFloat(row, "nu"+strconv.Itoa(n)+"_1_deviation")
			m2, ok3 := t.colFloat(row, "nu"+strconv.Itoa(n)+"_2_mean")
			d2, ok4 := t.colFloat(row, "nu"+strconv.Itoa(n)+"_2_deviation")
			if !ok1 || !ok2 || !ok3 || !ok4 {
				bad = true
				break
			}
			na.Mean1[n] = m1
			na.Deviation1[n] = d1
			na.Mean2[n] = m2
			na.Deviation2[n] = d2
		}
		if bad {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad nu-angle column"})
			continue
		}
		out = append(out, na)
	}
	return out, warnings, nil
}

// ExtBackboneAtomNames1 and ExtBackboneAtomNames2 name the fixed
// nine-atom sugar-phosphate pattern extracted from each residue of a step
// for extended-backbone RMSD superposition (spec section 4.9).
var (
	ExtBackboneAtomNames1 = [9]string{"P", "O5'", "C5'", "C4'", "O4'", "C3'", "O3'", "C2'", "C1'"}
	ExtBackboneAtomNames2 = ExtBackboneAtomNames1
)

// ExtBackboneRow is one row of the per-cluster extended-backbone reference
// coordinate table: eighteen points (nine per residue, in
// ExtBackboneAtomNames1/2 order) giving a representative geometry for the
// cluster's NtC class.
type ExtBackboneRow struct {
	ClusterNumber int
	Points        [18][3]float64
}

// LoadExtBackbone parses the extended-backbone reference-coordinate table.
func LoadExtBackbone(r io.Reader) ([]ExtBackboneRow, []Warning, error) {
	required := []string{"cluster_number"}
	for i := 0; i < 18; i++ {
		n := strconv.Itoa(i)
		required = append(required, "ext_"+n+"_x", "ext_"+n+"_y", "ext_"+n+"_z")
	}

	t, warnings, err := parseRaw(r, required)
	if err != nil {
		return nil, nil, err
	}

	var out []ExtBackboneRow
	for i, row := range t.rows {
		num, ok := t.colInt(row, "cluster_number")
		if !ok {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad cluster_number"})
			continue
		}
		er := ExtBackboneRow{ClusterNumber: num}
		bad := false
		for p := 0; p < 18; p++ {
			n := strconv.Itoa(p)
			x, ok1 := t.colFloat(row, "ext_"+n+"_x")
			y, ok2 := t.colFloat(row, "ext_"+n+"_y")
			z, ok3 := t.colFloat(row, "ext_"+n+"_z")
			if !ok1 || !ok2 || !ok3 {
				bad = true
				break
			}
			er.Points[p] = [3]float64{x, y, z}
		}
		if bad {
			warnings = append(warnings, Warning{Line: t.lines[i], Reason: "bad extended-backbone coordinate"})
			continue
		}
		out = append(out, er)
	}
	return out, warnings, nil
}

// LoadConfalPercentiles parses the 101-entry confal percentile table: one
// numeric value per non-empty line, with an optional non-numeric header
// line ignored.
func LoadConfalPercentiles(r io.Reader) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	var values []float64
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			if first {
				first = false
				continue // header line
			}
			continue // unparseable row, discarded silently: this loader returns no warnings
		}
		first = false
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.CannotReadFile, "error reading confal percentile table", err)
	}
	if len(values) == 0 {
		return nil, errs.New(errs.BadData, "confal percentile table is empty")
	}
	return values, nil
}
