// Package ipc provides the socket core: stream providers and consumers,
// datagram peers, socket options, interface enumeration, and near/far-end
// address queries, layered over golang.org/x/sys/unix and net.
package ipc
