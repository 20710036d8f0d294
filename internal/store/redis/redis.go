// Package redis stores collections in Redis hashes with a sorted set for order.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"
	"github.com/robalyx/followbot/internal/store"
)

// DefaultPrefix namespaces every key written by the backend.
const DefaultPrefix = "followbot:store:"

// Backend persists each collection as three keys:
// a hash of id to document, a sorted set of ids scored by insertion sequence,
// and a counter that hands out the next sequence number.
type Backend struct {
	client rueidis.Client
	prefix string
}

// New creates a Redis backend. An empty prefix uses DefaultPrefix.
func New(client rueidis.Client, prefix string) *Backend {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Backend{
		client: client,
		prefix: prefix,
	}
}

func (b *Backend) dataKey(collection string) string  { return b.prefix + collection + ":data" }
func (b *Backend) orderKey(collection string) string { return b.prefix + collection + ":order" }
func (b *Backend) seqKey(collection string) string   { return b.prefix + collection + ":seq" }

// Load implements store.Backend.
func (b *Backend) Load(ctx context.Context, collection string) ([]store.RawEntry, error) {
	ids, err := b.client.Do(ctx,
		b.client.B().Zrange().Key(b.orderKey(collection)).Min("0").Max("-1").Build(),
	).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s order: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := b.client.Do(ctx,
		b.client.B().Hmget().Key(b.dataKey(collection)).Field(ids...).Build(),
	).ToArray()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s entries: %w", collection, err)
	}

	entries := make([]store.RawEntry, 0, len(ids))
	for i, raw := range ids {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, &store.CorruptStoreError{Collection: collection, Err: fmt.Errorf("invalid id %q: %w", raw, err)}
		}

		// Order entries without data are leftovers of an interrupted delete
		if values[i].IsNil() {
			continue
		}

		data, err := values[i].ToString()
		if err != nil {
			return nil, &store.CorruptStoreError{Collection: collection, ID: id, Err: err}
		}
		entries = append(entries, store.RawEntry{ID: id, Data: []byte(data)})
	}

	return entries, nil
}

// Put implements store.Backend. The order and data writes are applied in
// one transaction so Count and Load agree.
func (b *Backend) Put(ctx context.Context, collection string, entry store.RawEntry) error {
	seq, err := b.client.Do(ctx, b.client.B().Incr().Key(b.seqKey(collection)).Build()).ToInt64()
	if err != nil {
		return fmt.Errorf("failed to allocate %s sequence: %w", collection, err)
	}

	member := strconv.FormatUint(entry.ID, 10)
	_, err = b.multi(ctx, func(c rueidis.DedicatedClient) rueidis.Commands {
		return rueidis.Commands{
			c.B().Zadd().Key(b.orderKey(collection)).Nx().ScoreMember().ScoreMember(float64(seq), member).Build(),
			c.B().Hset().Key(b.dataKey(collection)).FieldValue().FieldValue(member, string(entry.Data)).Build(),
		}
	})
	if err != nil {
		return fmt.Errorf("failed to put %s entry %d: %w", collection, entry.ID, err)
	}

	return nil
}

// Delete implements store.Backend.
func (b *Backend) Delete(ctx context.Context, collection string, id uint64) (bool, error) {
	member := strconv.FormatUint(id, 10)
	replies, err := b.multi(ctx, func(c rueidis.DedicatedClient) rueidis.Commands {
		return rueidis.Commands{
			c.B().Hdel().Key(b.dataKey(collection)).Field(member).Build(),
			c.B().Zrem().Key(b.orderKey(collection)).Member(member).Build(),
		}
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s entry %d: %w", collection, id, err)
	}

	removed, err := replies[0].AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to delete %s entry %d: %w", collection, id, err)
	}
	return removed > 0, nil
}

// Count implements store.Backend.
func (b *Backend) Count(ctx context.Context, collection string) (int, error) {
	count, err := b.client.Do(ctx, b.client.B().Hlen().Key(b.dataKey(collection)).Build()).ToInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return int(count), nil
}

// Replace implements store.Backend.
func (b *Backend) Replace(ctx context.Context, collection string, entries []store.RawEntry) error {
	_, err := b.multi(ctx, func(c rueidis.DedicatedClient) rueidis.Commands {
		cmds := rueidis.Commands{
			c.B().Del().Key(b.dataKey(collection), b.orderKey(collection)).Build(),
		}

		if len(entries) > 0 {
			hset := c.B().Hset().Key(b.dataKey(collection)).FieldValue()
			zadd := c.B().Zadd().Key(b.orderKey(collection)).ScoreMember()
			for i, entry := range entries {
				member := strconv.FormatUint(entry.ID, 10)
				hset = hset.FieldValue(member, string(entry.Data))
				zadd = zadd.ScoreMember(float64(i+1), member)
			}
			cmds = append(cmds, hset.Build(), zadd.Build())
		}

		return append(cmds, c.B().Set().Key(b.seqKey(collection)).Value(strconv.Itoa(len(entries))).Build())
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", collection, err)
	}
	return nil
}

// multi runs the commands inside MULTI/EXEC on a dedicated connection and
// returns the reply of each command.
func (b *Backend) multi(
	ctx context.Context, build func(c rueidis.DedicatedClient) rueidis.Commands,
) ([]rueidis.RedisMessage, error) {
	var replies []rueidis.RedisMessage

	err := b.client.Dedicated(func(c rueidis.DedicatedClient) error {
		cmds := append(rueidis.Commands{c.B().Multi().Build()}, build(c)...)
		cmds = append(cmds, c.B().Exec().Build())

		resps := c.DoMulti(ctx, cmds...)
		for _, resp := range resps[:len(resps)-1] {
			if err := resp.Error(); err != nil {
				return err
			}
		}

		results, err := resps[len(resps)-1].ToArray()
		if err != nil {
			return err
		}
		for i := range results {
			if err := results[i].Error(); err != nil {
				return err
			}
		}

		replies = results
		return nil
	})

	return replies, err
}

// Close implements store.Backend. The client is owned by the caller.
func (b *Backend) Close() error {
	return nil
}
