package redis

const (
	// upsertRecordScript atomically writes a record, moves it between the
	// dated and undated indexes, bumps the pilot revision and publishes the
	// change. A record that changed owner is removed from the previous
	// pilot's indexes, and that pilot is notified too.
	upsertRecordScript = `
local record_key = KEYS[1]     -- frms:record:{id}
local index_key = KEYS[2]      -- frms:records:pilot:{pilotID}
local undated_key = KEYS[3]    -- frms:records:pilot:{pilotID}:undated
local revision_key = KEYS[4]   -- frms:revision:{pilotID}

local id = ARGV[1]
local pilot_id = ARGV[2]
local day = ARGV[3]            -- civil day number, empty when undated
local prefix = ARGV[4]

local previous = redis.call('HGET', record_key, 'pilot_id')
if previous and previous ~= pilot_id then
  local old_index = prefix .. 'records:pilot:' .. previous
  redis.call('ZREM', old_index, id)
  redis.call('SREM', old_index .. ':undated', id)
  local old_rev = redis.call('INCR', prefix .. 'revision:' .. previous)
  redis.call('PUBLISH', prefix .. 'changes:' .. previous, 'delete:' .. old_rev .. ':' .. id)
end

-- Replace every field so cleared optional values do not linger
redis.call('DEL', record_key)
redis.call('HSET', record_key, unpack(ARGV, 5))

if day == '' then
  redis.call('ZREM', index_key, id)
  redis.call('SADD', undated_key, id)
else
  redis.call('SREM', undated_key, id)
  redis.call('ZADD', index_key, tonumber(day), id)
end

local rev = redis.call('INCR', revision_key)
redis.call('PUBLISH', prefix .. 'changes:' .. pilot_id, 'upsert:' .. rev .. ':' .. id)

return rev
`

	// deleteRecordScript atomically removes a record and its index entries.
	// Returns 0 when the record does not exist.
	deleteRecordScript = `
local record_key = KEYS[1]     -- frms:record:{id}

local id = ARGV[1]
local prefix = ARGV[2]

local pilot_id = redis.call('HGET', record_key, 'pilot_id')
if not pilot_id then
  return 0
end

redis.call('DEL', record_key)

local index_key = prefix .. 'records:pilot:' .. pilot_id
redis.call('ZREM', index_key, id)
redis.call('SREM', index_key .. ':undated', id)

local rev = redis.call('INCR', prefix .. 'revision:' .. pilot_id)
redis.call('PUBLISH', prefix .. 'changes:' .. pilot_id, 'delete:' .. rev .. ':' .. id)

return 1
`
)
