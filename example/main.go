package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/delegate"
	"github.com/meikuraledutech/bpmn/dmn"
	"github.com/meikuraledutech/bpmn/internal/config"
	"github.com/meikuraledutech/bpmn/postgres"
	"github.com/meikuraledutech/bpmn/sqlite"
)

const chargeSource = `package com.acme.billing;

public class ChargeCard implements org.camunda.bpm.engine.delegate.JavaDelegate {
    public void execute(org.camunda.bpm.engine.delegate.DelegateExecution execution) {
        execution.setVariable("charged", true);
    }
}
`

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.Logger(os.Stderr)

	// Postgres when BPMN_DATABASE_URL is set, an in-memory SQLite database otherwise.
	var store bpmn.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	} else {
		s, err := sqlite.Open(":memory:")
		if err != nil {
			log.Fatalf("open: %v", err)
		}
		defer s.Close()
		store = s
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Build a process ───────────────────────────────────────────────
	d, err := bpmn.NewDocument("Order Handling")
	if err != nil {
		log.Fatalf("new document: %v", err)
	}
	start, end := d.Nodes()[0].ID, d.Nodes()[1].ID
	if err := d.RemoveEdge(d.Edges()[0].ID); err != nil {
		log.Fatalf("remove edge: %v", err)
	}

	charge, err := d.Connect(start, bpmn.ServiceTask, "charge", "Charge card", "")
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	meta, err := delegate.Inspect("com.acme.billing.ChargeCard", chargeSource)
	if err != nil {
		log.Fatalf("inspect delegate: %v", err)
	}
	if err := d.ConfigureDelegate(charge, bpmn.DelegateAttrs{
		Kind: bpmn.ImplClass, Value: meta.ClassName, Exclusive: true,
	}); err != nil {
		log.Fatalf("configure delegate: %v", err)
	}

	ship, err := d.Connect(charge, bpmn.Task, "ship", "Ship order", end)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	refund, err := d.Connect(charge, bpmn.Task, "refund", "Refund", end)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	// Rewire charge -> {ship, refund} through a gateway.
	for _, e := range d.Edges() {
		if e.Source() == charge {
			if err := d.RemoveEdge(e.ID); err != nil {
				log.Fatalf("remove edge: %v", err)
			}
		}
	}
	if _, err := d.AddGateway(bpmn.ExclusiveGateway, "paid", "Payment ok?", charge, []bpmn.Branch{
		{TargetID: ship, Condition: "${charged}"},
		{TargetID: refund, Default: true},
	}); err != nil {
		log.Fatalf("add gateway: %v", err)
	}

	// ── Validate ──────────────────────────────────────────────────────
	violations := bpmn.Validate(d)
	fmt.Printf("\nviolations (%d):\n", len(violations))
	printJSON(violations)

	// ── Fix, storing the generated forms ──────────────────────────────
	fixer := &bpmn.AutoFixer{Forms: store, Layout: cfg.Layout, Logger: logger}
	report, err := fixer.Fix(ctx, d)
	if err != nil {
		log.Fatalf("fix: %v", err)
	}
	fmt.Println("\nfix report:")
	printJSON(report)

	// ── Persist and reload ────────────────────────────────────────────
	codec := bpmn.NewCodec(cfg.Layout, logger)
	xml, err := codec.Serialize(d)
	if err != nil {
		log.Fatalf("serialize: %v", err)
	}
	rec, err := store.SaveDocument(ctx, &bpmn.Record{Key: d.ProcessID, Name: d.ProcessName, Content: xml})
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Printf("\nsaved %s version %d\n", rec.Key, rec.Version)

	latest, err := store.LatestDocument(ctx, d.ProcessID)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	back, err := codec.Parse(latest.Content)
	if err != nil {
		log.Fatalf("parse: %v", err)
	}
	fmt.Printf("reloaded document equal: %v\n", back.Equal(d))

	fmt.Println("\nsummary:")
	printJSON(bpmn.Summarize(back))

	for _, f := range report.Fixed {
		stored, err := store.GetForm(ctx, f.FormKey)
		if err != nil {
			log.Fatalf("get form: %v", err)
		}
		fmt.Printf("\nform %s:\n", f.FormKey)
		printJSON(stored)
	}

	// ── Decision table ────────────────────────────────────────────────
	m, err := dmn.New(dmn.DecisionKey("Credit Risk"), "Credit Risk")
	if err != nil {
		log.Fatalf("new decision: %v", err)
	}
	m.AddInput("Amount", "amount", "double")
	if _, err := m.AddRule("large orders", []string{`"gold"`, "> 1000"}, []string{`"manual"`}); err != nil {
		log.Fatalf("add rule: %v", err)
	}
	if err := dmn.Validate(m); err != nil {
		log.Fatalf("validate decision: %v", err)
	}
	table, err := dmn.Serialize(m)
	if err != nil {
		log.Fatalf("serialize decision: %v", err)
	}
	if _, err := store.SaveDocument(ctx, &bpmn.Record{Key: m.Decision.ID, Kind: bpmn.KindDMN, Name: m.Decision.Name, Content: table}); err != nil {
		log.Fatalf("save decision: %v", err)
	}
	fmt.Printf("\ndecision %s saved:\n%s\n", m.Decision.ID, table)

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteDocument(ctx, d.ProcessID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nprocess deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
