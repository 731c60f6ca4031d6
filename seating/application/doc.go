// Package application contém os casos de uso do salão: sentar e liberar grupos
// com política de timeout e registro de estatísticas.
//
// Ele depende apenas do pacote domain e não conhece locks nem filas.
// Ex.: SeatingService.Seat(ctx, size) retorna o handle da mesa ou um erro da taxonomia.
package application
