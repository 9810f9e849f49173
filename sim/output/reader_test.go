package output

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/resbridge/resbridge/sim"
)

const sampleRSM = `1
 SUMMARY OF RUN CASE
 -------------------------------------------------------
 TIME FOPR FWIR WBHP WBHP
 DAYS SM3/DAY SM3/DAY BARSA BARSA
 PROD INJ
 -------------------------------------------------------
 10 1500 2000 250 310
 30 1480 2000 245 315
 60 1450 2000 240 320
`

func TestReadRSM_SampleTable_SplitsFieldAndWellVectors(t *testing.T) {
	res, err := ReadRSM("CASE.RSM", strings.NewReader(sampleRSM))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fopr, ok := res.Field["FOPR"]
	if !ok {
		t.Fatal("FOPR missing from field vectors")
	}
	if fopr.Len() != 3 || fopr.Times[0] != 10 || fopr.Values[2] != 1450 {
		t.Errorf("FOPR = %+v", fopr)
	}
	if _, ok := res.Field["FWIR"]; !ok {
		t.Error("FWIR missing from field vectors")
	}

	prod, ok := res.Well["WBHP:PROD"]
	if !ok {
		t.Fatalf("WBHP:PROD missing, have %v", res.Well)
	}
	if prod.Values[0] != 250 {
		t.Errorf("WBHP:PROD[0] = %g, want 250", prod.Values[0])
	}
	inj := res.Well["WBHP:INJ"]
	if inj.Values[2] != 320 {
		t.Errorf("WBHP:INJ[2] = %g, want 320", inj.Values[2])
	}
	if !res.Convergence.Completed {
		t.Error("fresh result must start complete")
	}
}

func TestReadRSM_RaggedRow_ParseErrorWithLine(t *testing.T) {
	truncated := strings.Replace(sampleRSM, " 30 1480 2000 245 315", " 30 1480 2000", 1)
	_, err := ReadRSM("CASE.RSM", strings.NewReader(truncated))

	var parseErr *sim.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if parseErr.Source != "CASE.RSM" {
		t.Errorf("source = %q", parseErr.Source)
	}
	if parseErr.Line != 9 {
		t.Errorf("line = %d, want 9", parseErr.Line)
	}
}

func TestReadRSM_NoHeader_ParseError(t *testing.T) {
	_, err := ReadRSM("CASE.RSM", strings.NewReader("no summary here\n"))
	var parseErr *sim.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if !strings.Contains(parseErr.Msg, "no TIME header") {
		t.Errorf("msg = %q", parseErr.Msg)
	}
}

func TestReadRSM_BadNumber_ParseError(t *testing.T) {
	corrupt := strings.Replace(sampleRSM, " 60 1450 2000 240 320", " 60 14x0 2000 240 320", 1)
	_, err := ReadRSM("CASE.RSM", strings.NewReader(corrupt))
	var parseErr *sim.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if !strings.Contains(parseErr.Msg, "bad number") {
		t.Errorf("msg = %q", parseErr.Msg)
	}
}

func TestReadRSM_DuplicateColumns_WarnsAndRightmostWins(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	duplicated := ` TIME FOPR FOPR
 DAYS SM3/DAY SM3/DAY
 10 1500 7
 30 1480 8
`
	res, err := ReadRSM("CASE.RSM", strings.NewReader(duplicated))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Field["FOPR"].Values[0]; got != 7 {
		t.Errorf("FOPR[0] = %g, want rightmost column value 7", got)
	}

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "duplicate column FOPR") {
			warned = true
		}
	}
	if !warned {
		t.Error("duplicate column did not warn")
	}
}

const sampleCSV = `TIME,FOPR,WBHP:PROD
10,1500,250
30,1480,245
60,1450,240
`

func TestReadCSV_Export_SplitsFieldAndWellVectors(t *testing.T) {
	res, err := ReadCSV("results.csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Field["FOPR"].Len() != 3 {
		t.Errorf("FOPR = %+v", res.Field["FOPR"])
	}
	if res.Well["WBHP:PROD"].Values[1] != 245 {
		t.Errorf("WBHP:PROD = %+v", res.Well["WBHP:PROD"])
	}
}

func TestReadCSV_HeaderWithoutTime_ParseError(t *testing.T) {
	_, err := ReadCSV("results.csv", strings.NewReader("FOPR,WBHP:PROD\n1,2\n"))
	var parseErr *sim.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if !strings.Contains(parseErr.Msg, "TIME") {
		t.Errorf("msg = %q", parseErr.Msg)
	}
}

func TestReadCSV_NoDataRows_ParseError(t *testing.T) {
	_, err := ReadCSV("results.csv", strings.NewReader("TIME,FOPR\n"))
	var parseErr *sim.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}
