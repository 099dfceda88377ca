package fixups

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestEngine_ConstantFixup(t *testing.T) {
	e := &Engine{rules: nil, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	n, err := e.LoadFile(strings.NewReader(`<fixups>
		<constant protocol="eth" text="Destination: Broadcast" name="eth.dst.bc"/>
	</fixups>`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n != 1 {
		t.Fatalf("LoadFile returned %d rules, want 1", n)
	}

	attrs := &Attrs{ProtocolName: "eth", Show: "Destination: Broadcast"}
	e.Apply(attrs)

	if attrs.Name != "eth.dst.bc" {
		t.Errorf("Name = %q, want %q", attrs.Name, "eth.dst.bc")
	}
	if attrs.ShowName != "Destination: Broadcast" {
		t.Errorf("ShowName = %q, want %q", attrs.ShowName, "Destination: Broadcast")
	}
	if attrs.Show != "" {
		t.Errorf("Show = %q, want empty", attrs.Show)
	}
	if attrs.Value != "" {
		t.Errorf("Value = %q, want empty", attrs.Value)
	}
}

func TestEngine_PrefixFixup(t *testing.T) {
	e := &Engine{rules: nil, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	_, err := e.LoadFile(strings.NewReader(`<fixups>
		<prefix protocol="tcp" text="Source Port" name="tcp.srcport.label"/>
	</fixups>`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	attrs := &Attrs{ProtocolName: "tcp", Show: "Source Port: 443"}
	e.Apply(attrs)

	if attrs.Name != "tcp.srcport.label" {
		t.Errorf("Name = %q, want %q", attrs.Name, "tcp.srcport.label")
	}
	if attrs.Show != "443" {
		t.Errorf("Show = %q, want %q", attrs.Show, "443")
	}
	if attrs.Value != "443" {
		t.Errorf("Value = %q, want %q", attrs.Value, "443")
	}
}

func TestEngine_TemplateFixup_SubstitutesTokens(t *testing.T) {
	e := &Engine{rules: nil, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	_, err := e.LoadFile(strings.NewReader(`<fixups>
		<template protocol="ip" show="^(?P&lt;ttl&gt;\d+)$" nameFormat="$(parentNamePrefix)ttl.derived" valueFormat="$(ttl)"/>
	</fixups>`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	attrs := &Attrs{ProtocolName: "ip", ParentName: "ip", Name: "ip.ttl", Show: "64", Value: "64"}
	e.Apply(attrs)

	if attrs.Name != "ip.ttl.derived" {
		t.Errorf("Name = %q, want %q", attrs.Name, "ip.ttl.derived")
	}
	if attrs.Show != "64" {
		t.Errorf("Show = %q, want %q", attrs.Show, "64")
	}
}

func TestEngine_ConstantShortCircuitsTemplates(t *testing.T) {
	e := &Engine{rules: nil, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	_, err := e.LoadFile(strings.NewReader(`<fixups>
		<constant protocol="eth" text="Broadcast" name="eth.dst.bc"/>
		<template protocol="eth" name="eth.dst.bc" nameFormat="should.not.apply" valueFormat="x"/>
	</fixups>`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	attrs := &Attrs{ProtocolName: "eth", Show: "Broadcast"}
	e.Apply(attrs)

	if attrs.Name != "eth.dst.bc" {
		t.Errorf("Name = %q, want constant to win and short-circuit templates", attrs.Name)
	}
}

func TestEngine_BuiltinRulesDecode(t *testing.T) {
	e := NewEngine(nil)
	if len(e.rules) == 0 {
		t.Fatalf("expected built-in rules to decode into at least one rule")
	}
}

func TestEngine_LoadFile_MalformedXMLReturnsError(t *testing.T) {
	e := &Engine{rules: nil, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	_, err := e.LoadFile(strings.NewReader("not xml at all <<<"))
	if err == nil {
		t.Fatalf("expected error for malformed xml")
	}
}

func TestEngine_LoadFile_BadRegexSkipsRuleNotFile(t *testing.T) {
	e := &Engine{rules: nil, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	n, err := e.LoadFile(strings.NewReader(`<fixups>
		<template protocol="x" show="(unclosed" nameFormat="a" valueFormat="b"/>
		<constant protocol="eth" text="Broadcast" name="eth.dst.bc"/>
	</fixups>`))
	if err != nil {
		t.Fatalf("LoadFile should not fail the whole file on one bad rule: %v", err)
	}
	if n != 1 {
		t.Fatalf("LoadFile returned %d rules, want 1 (bad template skipped)", n)
	}
}
