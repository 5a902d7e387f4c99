/*
Package telemetry delivers events to a VES event listener.

An Engine owns a bounded queue and exactly one dispatch worker:

	producers --Post--> Queue (capacity N, +1 slot for terminate) --> worker --> Transport --> collector

Post never blocks. It fails with core.ErrBufferFull when the queue is full
and with core.ErrHandlerInactive unless the engine is ACTIVE. The worker
encodes each event and POSTs it once; failures are logged, counted and
optionally journaled to Redis, and the worker moves on. Nothing is retried.

Lifecycle:

	UNINITIALIZED -> INACTIVE -> ACTIVE -> REQUEST_TERMINATE -> TERMINATING -> TERMINATED

Terminate queues a terminate command behind every pending event, so the
worker drains the queue before it stops. Shutdown terminates and waits.

Usage:

	cfg, err := core.NewConfig(core.WithCollector("collector.example.com", 30000))
	if err != nil {
		return err
	}
	engine, err := telemetry.Initialize(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Shutdown(context.Background())

	hb := engine.Events().NewHeartbeat()
	if err := engine.Post(hb); err != nil {
		log.Printf("heartbeat not queued: %v", err)
	}

Every dispatch is traced as an "evel.dispatch" span and counted with
OpenTelemetry instruments (see the Metric* constants). Providers default
to the otel globals; NewTracerProvider installs a stdout or OTLP exporter.
*/
package telemetry
