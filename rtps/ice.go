// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package rtps

import "github.com/pion/webrtc/v4"

// ICEConfig holds ICE server configuration for WebRTC PeerConnections.
type ICEConfig struct {
	// Servers is the list of ICE servers (STUN + TURN) tried in order
	// during candidate gathering.
	Servers []webrtc.ICEServer
}

// ICEConfigFromSTUNList builds an ICEConfig from a plain list of STUN
// server URIs (e.g. "stun:stun.l.google.com:19302"). An empty list
// produces a config with only host candidates — sufficient for
// same-machine and same-LAN operation.
func ICEConfigFromSTUNList(stunURIs []string) ICEConfig {
	if len(stunURIs) == 0 {
		return ICEConfig{}
	}
	return ICEConfig{
		Servers: []webrtc.ICEServer{
			{URLs: stunURIs},
		},
	}
}

// ICEConfigWithTURN builds an ICEConfig carrying both STUN and a single
// TURN relay, for deployments behind symmetric NATs where host/STUN
// candidates alone cannot establish connectivity.
func ICEConfigWithTURN(stunURIs []string, turnURI, turnUsername, turnPassword string) ICEConfig {
	servers := []webrtc.ICEServer{}
	if len(stunURIs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stunURIs})
	}
	if turnURI != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs:       []string{turnURI},
			Username:   turnUsername,
			Credential: turnPassword,
		})
	}
	return ICEConfig{Servers: servers}
}
