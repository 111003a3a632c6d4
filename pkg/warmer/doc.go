// Package warmer refreshes hot resource keys on a cron schedule
// (github.com/robfig/cron/v3), so popular instances such as sidebar ads are
// re-fetched before their TTL runs out under user traffic.
package warmer
