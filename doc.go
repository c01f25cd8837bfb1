// Package tempmongo provisions a disposable MongoDB server in a Docker
// container for use as a test fixture.
//
// A [TempMongo] owns exactly one container. [New] connects to the Docker
// daemon without side effects; [TempMongo.Create] pulls the image if absent,
// publishes the server port on loopback, starts the container, waits until
// mongod accepts connections, and hands back a ready [mongo.Client] through
// [TempMongo.Client].
//
// By default every manager creates its own container with an engine-assigned
// name on a freshly allocated port, so parallel tests stay isolated. With
// [WithFixedName] all managers converge on one well-known container instead;
// concurrent creators race through the engine's atomic name-uniqueness check
// and the losers adopt the winner's container.
//
// Teardown is explicit: [TempMongo.KillAndClean] stops and removes the
// container, [TempMongo.KillNotClean] stops it but keeps its state around
// for inspection.
package tempmongo
