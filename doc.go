// Package datapipeline is the client library for producing and consuming
// Avro-encoded data pipeline messages.
//
// Architecture:
//   - schema: schema ids, stores (memory, Redis, MongoDB, PostgreSQL) and resolvers
//   - payload: lazy, memoized Avro payloads with pluggable backends (hamba, goavro)
//   - meta: meta attributes attached to messages, such as TransactionID
//   - schematizer: cached client models of the schema registry
//   - transport/message, transport/codec: the message envelope and its wire formats
//
// Basic example:
//
//	store := schema.NewRedisStore(rdb)
//	resolver := schema.NewCachingResolver(schema.NewStoreResolver(store))
//
//	// Producer side: build from decoded data, encode on demand
//	p, err := payload.New(42, nil, payload.Data{"param1": "a", "param2": 1},
//	    payload.WithResolver(resolver))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tx, err := meta.NewTransactionID(100, "cluster", "mysql-bin.000001", 4,
//	    payload.WithResolver(resolver))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, err := codec.Default().Encode(ctx, message.New(ctx, "orders", p, tx.Attribute))
//
//	// Consumer side: decoding is deferred until the data is read
//	c := codec.JSON{PayloadOptions: []payload.Option{payload.WithResolver(resolver)}}
//	msg, err := c.Decode(ctx, data)
//	fields, err := msg.Payload().Decoded(ctx)
//
// Dry-run mode (payload.WithDryRun) replaces Avro encoding with a stable
// textual rendering of the decoded data, for inspecting messages without a
// schema registry.
package datapipeline
