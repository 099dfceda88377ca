package dbwriter

import (
	"strings"
	"testing"
)

func TestFilter_DefaultAllowsEverything(t *testing.T) {
	f := NoopFilter()
	if !f.AllowsTable("anything") || !f.AllowsColumn("anything") {
		t.Errorf("NoopFilter should allow everything")
	}
}

func TestFilter_LastMatchWins(t *testing.T) {
	xmlData := `<filter>
		<tables>
			<deny tableName="^tcp.*"/>
			<allow tableName="^tcp_opt$"/>
		</tables>
	</filter>`
	f, errs := LoadFilter(strings.NewReader(xmlData))
	if len(errs) != 0 {
		t.Fatalf("LoadFilter errs: %v", errs)
	}
	if f.AllowsTable("tcp") {
		t.Errorf("expected tcp denied by the first rule")
	}
	if !f.AllowsTable("tcp_opt") {
		t.Errorf("expected tcp_opt allowed by the later, more specific rule")
	}
}

func TestFilter_ColumnRulesIndependentOfTableRules(t *testing.T) {
	xmlData := `<filter>
		<columns>
			<deny columnName="^_raw$"/>
		</columns>
	</filter>`
	f, errs := LoadFilter(strings.NewReader(xmlData))
	if len(errs) != 0 {
		t.Fatalf("LoadFilter errs: %v", errs)
	}
	if f.AllowsColumn("_raw") {
		t.Errorf("expected _raw column denied")
	}
	if !f.AllowsTable("_raw") {
		t.Errorf("table rules should be unaffected by column rules")
	}
}

func TestFilter_BadRegexIsReportedNotFatal(t *testing.T) {
	xmlData := `<filter><tables><deny tableName="("/></tables></filter>`
	f, errs := LoadFilter(strings.NewReader(xmlData))
	if len(errs) == 0 {
		t.Fatalf("expected a compile error for the malformed regex")
	}
	if f == nil {
		t.Fatalf("LoadFilter returned nil filter alongside per-rule errors")
	}
}
