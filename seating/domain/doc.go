// Package domain define contratos e tipos de domínio para a alocação de mesas.
//
// Este pacote não conhece locks, goroutines nem implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar as regras
// (classes de capacidade, política de encaixe, taxonomia de erros) da
// maquinaria de sincronização que vive em infra.
package domain
