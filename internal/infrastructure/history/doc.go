// Package history records observed device state in InfluxDB v2.
//
// Every state a bridge publishes to the bus can also be written here as
// a time-series point tagged by vendor and device id, giving the
// surrounding application a queryable history (was the heating on at
// 6am, how bright was the hallway). Writes go through the non-blocking
// batched WriteAPI so a slow or absent InfluxDB never stalls a poll
// cycle; write failures surface through an async error callback.
//
// History is optional. Bridges accept the Recorder interface and treat
// nil as disabled, and Connect returns ErrDisabled when the config
// section is off.
package history
